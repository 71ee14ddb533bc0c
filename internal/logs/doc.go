// Package logs reads the JSON log file written when logging.file is enabled.
//
// Tail returns the last matching records and the offset to resume from;
// Follow polls for new records until the context ends. A Filter narrows
// records to one run id prefix or a minimum level.
package logs
