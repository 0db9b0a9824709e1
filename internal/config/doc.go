// Package config parses the trackviz command line.
//
// Options follow the tracker utilities' conventions: single-dash toggles
// such as -nofeatures, key=value options such as -loglevel=DEBUG, and
// two-part options such as --vconf <string>. Anything else is positional:
// the first is the reference image path and the second its printed width in
// millimetres.
//
// The log level may also come from the TRACKVIZ_LOG_LEVEL environment
// variable; an explicit -loglevel option wins.
package config
