package logger

import (
	"strings"

	"github.com/nulzo/prism-copy/internal/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const coloredConsoleEncoding = "colored-console"

var bufferPool = buffer.NewPool()

// Registering under a name lets zap.Config select the encoder by Encoding.
func init() {
	if err := zap.RegisterEncoder(coloredConsoleEncoding, func(cfg zapcore.EncoderConfig) (zapcore.Encoder, error) {
		return NewColoredConsoleEncoder(cfg), nil
	}); err != nil {
		panic(err)
	}
}

// coloredConsoleEncoder wraps zap's console encoder and highlights the trailing field blob.
type coloredConsoleEncoder struct {
	zapcore.Encoder
}

// NewColoredConsoleEncoder leaves time, level, caller and message to the
// stock console encoder.
func NewColoredConsoleEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &coloredConsoleEncoder{
		Encoder: zapcore.NewConsoleEncoder(cfg),
	}
}

// Clone keeps the wrapper when zap derives child loggers via With.
func (c *coloredConsoleEncoder) Clone() zapcore.Encoder {
	return &coloredConsoleEncoder{
		Encoder: c.Encoder.Clone(),
	}
}

// EncodeEntry renders the line normally, then recolors the field blob.
func (c *coloredConsoleEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	// First pass: the plain console rendering.
	buf, err := c.Encoder.EncodeEntry(ent, fields)
	if err != nil {
		return nil, err
	}

	// The console encoder separates metadata from the JSON fields with a
	// tab, e.g. "12:00:01\tINFO\tprovider attempt\t{\"provider\":\"groq\"}".
	// Lines without fields have no blob and pass through untouched.
	line := buf.String()
	splitIdx := strings.Index(line, "\t{")
	if splitIdx == -1 {
		return buf, nil
	}

	// Keep the metadata (tab included) and highlight the rest.
	out := bufferPool.Get()
	out.AppendString(line[:splitIdx+1])
	out.AppendString(cli.HighlightJSON(line[splitIdx+1:]))
	buf.Free()

	return out, nil
}
