package sorter

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"

	"github.com/nao1215/roadworks/internal/model"
)

// xmlSuffix selects the files the sorter looks at.
const xmlSuffix = ".xml"

// Sorter moves XML files into per-format directories.
type Sorter struct {
	fs     afero.Fs
	parser RootParser
	logger *slog.Logger

	// out receives the human-readable progress lines.
	out io.Writer
}

// Option configures a Sorter.
type Option func(*Sorter)

// WithFs sets the filesystem the sorter reads from and moves files on.
func WithFs(fsys afero.Fs) Option {
	return func(s *Sorter) {
		s.fs = fsys
	}
}

// WithParser replaces the default XMLRootParser.
func WithParser(p RootParser) Option {
	return func(s *Sorter) {
		s.parser = p
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sorter) {
		s.logger = logger
	}
}

// WithOutput sets the writer for progress lines. Defaults to io.Discard.
func WithOutput(w io.Writer) Option {
	return func(s *Sorter) {
		s.out = w
	}
}

// New creates a Sorter working on the OS filesystem.
func New(opts ...Option) *Sorter {
	s := &Sorter{
		fs:     afero.NewOsFs(),
		parser: XMLRootParser{},
		logger: slog.Default(),
		out:    io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run classifies every .xml file directly inside sourceDir and moves it to
// newDir, oldDir or unknownDir.
//
// ErrSourceNotFound and ErrSourceEmpty abort the run before any file is
// touched. Problems with individual files are recorded in the summary.
func (s *Sorter) Run(ctx context.Context, sourceDir, newDir, oldDir, unknownDir string) (*model.SortSummary, error) {
	summary := &model.SortSummary{
		SourceDir:        sourceDir,
		NewFormatDir:     newDir,
		OldFormatDir:     oldDir,
		UnknownFormatDir: unknownDir,
		Results:          make([]model.Classification, 0),
	}

	for _, dir := range []string{newDir, oldDir, unknownDir} {
		if err := s.fs.MkdirAll(dir, 0750); err != nil {
			return summary, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	ok, err := afero.DirExists(s.fs, sourceDir)
	if err != nil {
		return summary, fmt.Errorf("failed to stat source directory %s: %w", sourceDir, err)
	}
	if !ok {
		return summary, fmt.Errorf("%w: %s", ErrSourceNotFound, sourceDir)
	}

	// afero.ReadDir returns entries sorted by name.
	entries, err := afero.ReadDir(s.fs, sourceDir)
	if err != nil {
		return summary, fmt.Errorf("failed to list source directory %s: %w", sourceDir, err)
	}
	if len(entries) == 0 {
		return summary, fmt.Errorf("%w: %s", ErrSourceEmpty, sourceDir)
	}

	fmt.Fprintf(s.out, "Source XML directory: %s\n", absPath(sourceDir))
	fmt.Fprintf(s.out, "New format XMLs will be moved to: %s\n", absPath(newDir))
	fmt.Fprintf(s.out, "Old format XMLs will be moved to: %s\n", absPath(oldDir))
	fmt.Fprintf(s.out, "Unknown format XMLs will be moved to: %s\n", absPath(unknownDir))
	fmt.Fprintln(s.out, strings.Repeat("-", 30))

	dirs := map[model.Format]string{
		model.FormatNew:     newDir,
		model.FormatOld:     oldDir,
		model.FormatUnknown: unknownDir,
	}

	for _, entry := range entries {
		if !strings.HasSuffix(strings.ToLower(entry.Name()), xmlSuffix) {
			continue
		}
		if !entry.Mode().IsRegular() {
			fmt.Fprintf(s.out, "Skipping '%s': not a regular file.\n", entry.Name())
			s.logger.Warn("skipping xml entry that is not a regular file", "entry", entry.Name(), "mode", entry.Mode().String())
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		c := s.classify(filepath.Join(sourceDir, entry.Name()))
		s.move(&c, filepath.Join(sourceDir, entry.Name()), dirs[c.Format])
		summary.Record(c)
	}

	s.printSummary(summary)
	return summary, nil
}

// classify determines the format of the file at path.
func (s *Sorter) classify(path string) model.Classification {
	c := model.Classification{Filename: filepath.Base(path), Format: model.FormatUnknown}

	name, err := s.rootElement(path)
	if err != nil {
		c.ParseError = err.Error()
		fmt.Fprintf(s.out, "Error parsing XML file '%s': %v. Moving to unknown.\n", c.Filename, err)
		s.logger.Warn("failed to parse xml", "file", c.Filename, "error", err)
		return c
	}

	c.Root = Clark(name)
	c.LocalName = LocalName(c.Root)
	c.Format = model.FormatForRoot(c.LocalName)
	if c.Format == model.FormatUnknown {
		fmt.Fprintf(s.out, "File '%s' has an unrecognized root element: '%s'. Moving to unknown.\n", c.Filename, c.Root)
	}
	s.logger.Debug("classified", "file", c.Filename, "root", c.Root, "format", c.Format)
	return c
}

func (s *Sorter) rootElement(path string) (xml.Name, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return xml.Name{}, &ParseError{Err: err}
	}
	defer f.Close()

	return s.parser.RootElement(f)
}

// move relocates the file into destDir and fills in the destination on c.
// On failure the file stays where it is and c.MoveError is set.
func (s *Sorter) move(c *model.Classification, src, destDir string) {
	target, renamed, err := s.freeTarget(destDir, c.Filename)
	if err == nil {
		err = s.rename(src, target)
	}
	if err != nil {
		c.MoveError = err.Error()
		fmt.Fprintf(s.out, "Error moving file '%s' to '%s': %v\n", c.Filename, destDir, err)
		s.logger.Error("failed to move file", "file", c.Filename, "dest", destDir, "error", err)
		return
	}

	c.Destination = target
	c.Renamed = renamed
	if renamed {
		fmt.Fprintf(s.out, "'%s' already exists in '%s', stored as '%s'\n", c.Filename, destDir, filepath.Base(target))
	}
	if c.Format != model.FormatUnknown {
		fmt.Fprintf(s.out, "Moved '%s' to '%s'\n", c.Filename, destDir)
	}
}

// freeTarget returns a path in destDir that does not exist yet.
// A taken "<stem><ext>" becomes "<stem>_<n><ext>" with the smallest free n.
func (s *Sorter) freeTarget(destDir, name string) (string, bool, error) {
	target := filepath.Join(destDir, name)
	exists, err := afero.Exists(s.fs, target)
	if err != nil {
		return "", false, err
	}
	if !exists {
		return target, false, nil
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		target = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", stem, n, ext))
		exists, err := afero.Exists(s.fs, target)
		if err != nil {
			return "", false, err
		}
		if !exists {
			return target, true, nil
		}
	}
}

// rename moves src to dst, copying across filesystems when a plain rename
// is not possible.
func (s *Sorter) rename(src, dst string) error {
	err := s.fs.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}
	s.logger.Debug("cross-device move, copying", "src", src, "dst", dst)
	return s.copyAndRemove(src, dst)
}

func (s *Sorter) copyAndRemove(src, dst string) error {
	in, err := s.fs.Open(src)
	if err != nil {
		return err
	}

	out, err := s.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		_ = in.Close() //nolint:errcheck // Read-only handle
		return err
	}

	_, copyErr := io.Copy(out, in)
	_ = in.Close() //nolint:errcheck // Read-only handle
	if err := errors.Join(copyErr, out.Close()); err != nil {
		_ = s.fs.Remove(dst) //nolint:errcheck // Best effort cleanup
		return err
	}
	return s.fs.Remove(src)
}

func (s *Sorter) printSummary(summary *model.SortSummary) {
	fmt.Fprintln(s.out, strings.Repeat("-", 30))
	fmt.Fprintln(s.out, "Sorting Summary:")
	fmt.Fprintf(s.out, "Total XML files found in source: %d\n", summary.Processed)
	fmt.Fprintf(s.out, "Moved to New Format (%s): %d\n", summary.NewFormatDir, summary.MovedNew)
	fmt.Fprintf(s.out, "Moved to Old Format (%s): %d\n", summary.OldFormatDir, summary.MovedOld)
	fmt.Fprintf(s.out, "Moved to Unknown Format (%s): %d\n", summary.UnknownFormatDir, summary.MovedUnknown())
	if summary.MoveFailed > 0 {
		fmt.Fprintf(s.out, "Files that could not be moved: %d\n", summary.MoveFailed)
	}
	if summary.Renamed > 0 {
		fmt.Fprintf(s.out, "Files renamed to avoid overwriting: %d\n", summary.Renamed)
	}
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
