// Package report renders diarization results as JSON, YAML, or terminal tables.
package report
