package poster

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"losbot/internal/lineage"
)

// lineageToAndroidTag maps a LineageOS version to the Android release letter
// used as the announcement hashtag.
var lineageToAndroidTag = map[string]string{
	"16.0": "p",
	"17.1": "q",
	"18.1": "r",
	"19.1": "s",
	"20.0": "t",
	"20":   "t",
	"21":   "u",
	"22.0": "v",
	"22.1": "v",
	"22.2": "v",
}

func androidTag(lineageVersion string) string {
	if tag, ok := lineageToAndroidTag[lineageVersion]; ok {
		return tag
	}
	// Unknown mapping: fall back to the Lineage version itself.
	return strings.ReplaceAll(lineageVersion, ".", "_")
}

const markdownV2Special = "_*[]()~`>#+-=|{}.!"

// EscapeMarkdownV2 escapes text for Telegram MarkdownV2 body context.
func EscapeMarkdownV2(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\\' || strings.ContainsRune(markdownV2Special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// escapeLinkURL escapes a URL for the (...) part of a MarkdownV2 link.
func escapeLinkURL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `)`, `\)`)
}

func mdLink(label, url string) string {
	return fmt.Sprintf("[%s](%s)", EscapeMarkdownV2(label), escapeLinkURL(url))
}

func fileLine(f lineage.BuildFile) string {
	return fmt.Sprintf("%s %s", mdLink(f.Filename, f.URL),
		EscapeMarkdownV2(fmt.Sprintf("(%s)", humanize.Bytes(uint64(f.Size)))))
}

// RenderAnnouncement builds the channel announcement in MarkdownV2.
// channelUsername, when non-empty, is appended as an @tag footer.
func RenderAnnouncement(info lineage.DeviceInfo, b lineage.Build, channelUsername string) string {
	version := b.Version
	if version == "" && len(info.Versions) > 0 {
		version = info.Versions[len(info.Versions)-1]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n",
		EscapeMarkdownV2("#"+info.Codename),
		EscapeMarkdownV2("#"+androidTag(version)))
	fmt.Fprintf(&sb, "*LineageOS %s for %s*\n",
		EscapeMarkdownV2(version),
		EscapeMarkdownV2(fmt.Sprintf("%s %s (%s)", info.OEM, info.Name, info.Codename)))
	sb.WriteString("\n")
	if info.InfoURL != "" {
		fmt.Fprintf(&sb, "Device informations: [Here](%s)\n\n", escapeLinkURL(info.InfoURL))
	}
	fmt.Fprintf(&sb, "Date: %s\n", EscapeMarkdownV2(b.Date))
	if ota, ok := b.OTA(); ok {
		fmt.Fprintf(&sb, "Download: %s\n", fileLine(ota))
	}

	if extras := b.Extras(); len(extras) > 0 {
		sb.WriteString("\nAdditional files:\n")
		for _, f := range extras {
			sb.WriteString(fileLine(f))
			sb.WriteString("\n")
		}
	}

	if channelUsername != "" {
		fmt.Fprintf(&sb, "\n@%s\n", EscapeMarkdownV2(channelUsername))
	}
	return sb.String()
}

// RenderLatest builds the reply for the on-demand latest-build query.
func RenderLatest(info lineage.DeviceInfo, b lineage.Build) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Last build for %s %s %s:\n",
		EscapeMarkdownV2(info.OEM),
		EscapeMarkdownV2(info.Name),
		EscapeMarkdownV2(fmt.Sprintf("(%s)", info.Codename)))
	fmt.Fprintf(&sb, "Date: %s\n", EscapeMarkdownV2(b.Date))
	if ota, ok := b.OTA(); ok {
		fmt.Fprintf(&sb, "Download: %s\n", fileLine(ota))
	}
	if extras := b.Extras(); len(extras) > 0 {
		sb.WriteString("\nAdditional files:\n")
		for _, f := range extras {
			sb.WriteString(fileLine(f))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
