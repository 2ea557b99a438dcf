package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/cam-per/gsckit/digest"
	"github.com/cam-per/gsckit/internal/gsc"
	"github.com/cam-per/gsckit/utils"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

const version = "0.3.0"

// headBytes is how much of each hashed resource is dumped at debug level.
const headBytes = 32

type app struct {
	log *logrus.Logger
}

func newCommand(stdout io.Writer, log *logrus.Logger) *cli.Command {
	a := &app{log: log}

	return &cli.Command{
		Name:    "gsckit",
		Usage:   "inspect GSC game resources",
		Version: version,
		Writer:  stdout,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "log at debug level",
				Sources: cli.EnvVars("GSCKIT_VERBOSE"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				a.log.SetLevel(logrus.DebugLevel)
			}
			return ctx, nil
		},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			{
				Name:      "dump",
				Usage:     "hex dump a file or archive entry",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					archiveFlag(),
					&cli.Int64Flag{Name: "offset", Aliases: []string{"o"}, Usage: "first byte to dump"},
					&cli.Int64Flag{Name: "length", Aliases: []string{"n"}, Usage: "bytes to dump, 0 for the rest"},
					&cli.StringFlag{
						Name:    "layout",
						Value:   utils.LayoutCompact.String(),
						Usage:   "line layout: compact or classic",
						Sources: cli.EnvVars("GSCKIT_LAYOUT"),
					},
				},
				Action: a.dump,
			},
			{
				Name:      "hash",
				Usage:     "print content digests, sha1sum style",
				ArgsUsage: "[name...]",
				Flags: []cli.Flag{
					archiveFlag(),
					&cli.StringFlag{
						Name:    "algorithm",
						Value:   digest.SHA1.String(),
						Usage:   "sha1, sha256, blake2b-256 or blake3",
						Sources: cli.EnvVars("GSCKIT_ALGORITHM"),
					},
					&cli.BoolFlag{Name: "upper", Usage: "uppercase hex"},
				},
				Action: a.hash,
			},
			{
				Name:      "ls",
				Usage:     "list archive entries",
				ArgsUsage: "<archive>",
				Action:    a.list,
			},
		},
	}
}

func archiveFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "archive",
		Aliases: []string{"a"},
		Usage:   "resolve names inside the GSC archive `FILE`",
		Sources: cli.EnvVars("GSCKIT_ARCHIVE"),
	}
}

func (a *app) dump(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return cli.Exit("dump: expected exactly one name", 2)
	}
	layout, err := utils.ParseLayout(cmd.String("layout"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	fsys, closer, err := a.resolver(cmd.String("archive"))
	if err != nil {
		return err
	}
	defer closer.Close()

	name := cmd.Args().First()
	file, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	r, ok := file.(io.ReaderAt)
	if !ok {
		return fmt.Errorf("%s: random access not supported", name)
	}

	offset, length := cmd.Int64("offset"), cmd.Int64("length")
	if offset < 0 || offset > info.Size() {
		return cli.Exit(fmt.Sprintf("dump: offset %d outside %s (%d bytes)", offset, name, info.Size()), 2)
	}
	if length <= 0 || offset+length > info.Size() {
		length = info.Size() - offset
	}

	text, err := utils.HexDumpAt(r, offset, length, layout)
	if err != nil {
		return err
	}
	_, err = io.WriteString(cmd.Root().Writer, text)
	return err
}

func (a *app) hash(ctx context.Context, cmd *cli.Command) error {
	algorithm, err := digest.ParseAlgorithm(cmd.String("algorithm"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	digester := digest.New(digest.WithAlgorithm(algorithm))

	fsys, closer, err := a.resolver(cmd.String("archive"))
	if err != nil {
		return err
	}
	defer closer.Close()

	names := cmd.Args().Slice()
	if archive, ok := fsys.(archiveFS); ok && len(names) == 0 {
		for _, file := range archive.Files() {
			names = append(names, file.Path())
		}
	}
	if len(names) == 0 {
		return cli.Exit("hash: nothing to hash", 2)
	}

	for _, name := range names {
		sum, err := digester.SumFile(fsys, name)
		if err != nil {
			return err
		}
		text := sum.String()
		if cmd.Bool("upper") {
			text = sum.Upper()
		}
		if _, err := fmt.Fprintf(cmd.Root().Writer, "%s  %s\n", text, name); err != nil {
			return err
		}
		if a.log.IsLevelEnabled(logrus.DebugLevel) {
			a.describe(fsys, name, sum)
		}
	}
	return nil
}

func (a *app) list(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return cli.Exit("ls: expected exactly one archive", 2)
	}
	container, closer, err := a.openArchive(cmd.Args().First())
	if err != nil {
		return err
	}
	defer closer.Close()

	w := cmd.Root().Writer
	for _, file := range container.Files() {
		if _, err := fmt.Fprintf(w, "%s  %10s  %s\n", file.Hash(), humanize.IBytes(uint64(file.Size())), file.Path()); err != nil {
			return err
		}
	}
	return nil
}

// describe logs the size and leading bytes of a hashed resource.
func (a *app) describe(fsys fs.FS, name string, sum digest.Sum) {
	entry := a.log.WithFields(logrus.Fields{"name": name, "algorithm": sum.Algorithm().String()})

	file, err := fsys.Open(name)
	if err != nil {
		entry.WithError(err).Debug("cannot reopen for inspection")
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		entry.WithError(err).Debug("cannot stat")
		return
	}
	entry.WithField("size", humanize.IBytes(uint64(info.Size()))).Debug("hashed")

	head := make([]byte, min(info.Size(), headBytes))
	if _, err := io.ReadFull(file, head); err != nil {
		entry.WithError(err).Debug("cannot read head")
		return
	}
	utils.LogHexDump(entry, "head", head)
}

// resolver returns the file system names are looked up in: the archive
// when one is given, the operating system otherwise.
func (a *app) resolver(archive string) (fs.FS, io.Closer, error) {
	if archive == "" {
		return osFS{}, io.NopCloser(nil), nil
	}
	container, closer, err := a.openArchive(archive)
	if err != nil {
		return nil, nil, err
	}
	return archiveFS{container}, closer, nil
}

func (a *app) openArchive(path string) (*gsc.Container, io.Closer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	container, err := gsc.NewContainer(file)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("reading archive %s: %w", path, err)
	}
	a.log.WithFields(logrus.Fields{
		"archive": path,
		"entries": len(container.Files()),
		"version": container.Version(),
	}).Debug("archive opened")
	return container, file, nil
}

// archiveFS accepts archive-style names: backslashes and a leading slash.
type archiveFS struct {
	*gsc.Container
}

func (fsys archiveFS) Open(name string) (fs.File, error) {
	return fsys.Container.Open(gsc.Clean(name))
}

// osFS opens operating system paths as given, relative or absolute.
type osFS struct{}

func (osFS) Open(name string) (fs.File, error) { return os.Open(name) }
