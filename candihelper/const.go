package candihelper

const (
	// Version of this bot
	Version = "v0.4.0"

	// TimeFormatLogger const
	TimeFormatLogger = "2006/01/02 15:04:05"

	// WORKDIR const for workdir environment
	WORKDIR = "WORKDIR"

	// HeaderMIMEApplicationJSON const
	HeaderMIMEApplicationJSON = "application/json"
)
