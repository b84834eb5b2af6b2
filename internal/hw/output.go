package hw

import "github.com/sweeney/microwave/internal/logger"

// LogOutput writes records to a structured logger at info level.
type LogOutput struct {
	log *logger.Logger
}

// NewLogOutput creates an Output backed by log.
func NewLogOutput(log *logger.Logger) *LogOutput {
	return &LogOutput{log: logger.OrNop(log)}
}

// OutputLine logs the record.
func (o *LogOutput) OutputLine(line string) {
	o.log.Infow("output", "record", line)
}

// Tee returns an Output that forwards every record to each of outs in order.
// Nil entries are skipped.
func Tee(outs ...Output) Output {
	var kept []Output
	for _, o := range outs {
		if o != nil {
			kept = append(kept, o)
		}
	}
	return OutputFunc(func(line string) {
		for _, o := range kept {
			o.OutputLine(line)
		}
	})
}
