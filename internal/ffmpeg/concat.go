package ffmpeg

import (
	"context"
	"strings"

	"github.com/mvkit/mvkit/internal/errors"
	"github.com/mvkit/mvkit/internal/util"
)

// ConcatList renders a concat demuxer manifest for files, one
// "file '<path>'" line each. Single quotes in paths are escaped.
func ConcatList(files []string) string {
	var b strings.Builder
	for _, f := range files {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(f, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

// WriteConcatList writes the manifest for files to listPath. File paths are
// translated for the tool host since the demuxer resolves them there.
func (b *Builder) WriteConcatList(ctx context.Context, listPath string, files []string) error {
	if len(files) == 0 {
		return errors.NewConfigError("concat: no input files")
	}
	translated, err := b.translator.Paths(ctx, files...)
	if err != nil {
		return err
	}
	if err := util.WriteFileAtomic(listPath, []byte(ConcatList(translated)), 0644); err != nil {
		return errors.NewIOError("failed to write concat list "+listPath, err)
	}
	return nil
}
