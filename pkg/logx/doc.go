// Package logx is a small structured logging facade over zerolog.
//
// It exposes a value-type Logger with variadic Field options and a Service
// that owns the sink configuration (console, file, optional Telegram mirror)
// and can swap it at runtime without invalidating existing Logger values.
package logx
