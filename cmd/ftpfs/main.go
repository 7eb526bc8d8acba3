package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/driftfs/ftpfs/internal/logger"
	"github.com/driftfs/ftpfs/pkg/config"
	"github.com/driftfs/ftpfs/pkg/ftpfs"
)

const usage = `Usage: ftpfs [flags] <command> [args]

Commands:
  stat <path>                 show entry metadata
  ls [-r] <path>              list a directory (-r requests recursion)
  get <remote> [local]        download a file (local defaults to stdout)
  put [-f] <local> <remote>   upload a file (-f overwrites)
  rm <path>                   delete a file
  mkdir <path>                create a directory
  rmdir [-r] <path>           delete a directory (-r recurses)
  mv [-f] <src> <dest>        move/rename (-f overwrites)
  touch <path>                set modification time to now

Flags:
`

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ftpfs: %v\n", err)
		os.Exit(1)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	setupLogging(cfg)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := cfg.NewClient()
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("close: %v", err)
		}
	}()

	if err := run(ctx, client, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ftpfs: %s: %v\n", args[0], err)
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config) {
	logger.SetLevel(cfg.Logging.Level)

	switch cfg.Logging.Output {
	case "stdout", "":
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		f, err := os.OpenFile(cfg.Logging.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ftpfs: cannot open log file: %v\n", err)
			os.Exit(1)
		}
		logger.SetOutput(f)
	}
}

func run(ctx context.Context, client *ftpfs.Client, command string, args []string) error {
	switch command {
	case "stat":
		return statCmd(ctx, client, args)
	case "ls":
		return lsCmd(ctx, client, args)
	case "get":
		return getCmd(ctx, client, args)
	case "put":
		return putCmd(ctx, client, args)
	case "rm":
		return rmCmd(ctx, client, args)
	case "mkdir":
		return mkdirCmd(ctx, client, args)
	case "rmdir":
		return rmdirCmd(ctx, client, args)
	case "mv":
		return mvCmd(ctx, client, args)
	case "touch":
		return touchCmd(ctx, client, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func statCmd(ctx context.Context, client *ftpfs.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: stat <path>")
	}

	info, err := client.Stat(ctx, args[0])
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("no such entry: %s", args[0])
	}

	printInfo(ctx, info, true)
	return nil
}

func lsCmd(ctx context.Context, client *ftpfs.Client, args []string) error {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	recursive := fs.Bool("r", false, "request a recursive listing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: ls [-r] <path>")
	}

	opts := &ftpfs.ListingOptions{Recursive: *recursive}
	infos, err := client.ListDirectory(ctx, fs.Arg(0), opts)
	if err != nil {
		return err
	}
	if *recursive && !opts.RecursionHonored {
		logger.Warn("remote cannot recurse listings, showing a single level")
	}

	for _, info := range infos {
		printInfo(ctx, info, false)
	}
	return nil
}

func getCmd(ctx context.Context, client *ftpfs.Client, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: get <remote> [local]")
	}

	var out io.Writer = os.Stdout
	if len(args) == 2 {
		f, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	n, err := client.ReadFile(ctx, args[0], out)
	if err != nil {
		return err
	}
	logger.Info("downloaded %s (%d bytes)", args[0], n)
	return nil
}

func putCmd(ctx context.Context, client *ftpfs.Client, args []string) error {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	force := fs.Bool("f", false, "overwrite an existing target")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: put [-f] <local> <remote>")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := client.WriteFile(ctx, fs.Arg(1), f, *force)
	if err != nil {
		if ftpfs.IsCode(err, ftpfs.ErrConflict) {
			return fmt.Errorf("%s exists (use -f to overwrite)", fs.Arg(1))
		}
		return err
	}
	logger.Info("uploaded %s (%d bytes)", info.Path, info.Size)
	return nil
}

func rmCmd(ctx context.Context, client *ftpfs.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: rm <path>")
	}
	return client.Delete(ctx, args[0])
}

func mkdirCmd(ctx context.Context, client *ftpfs.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: mkdir <path>")
	}
	_, err := client.CreateDirectory(ctx, args[0])
	return err
}

func rmdirCmd(ctx context.Context, client *ftpfs.Client, args []string) error {
	fs := flag.NewFlagSet("rmdir", flag.ContinueOnError)
	recursive := fs.Bool("r", false, "delete contents recursively")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: rmdir [-r] <path>")
	}

	err := client.DeleteDirectory(ctx, fs.Arg(0), *recursive)
	if ftpfs.IsCode(err, ftpfs.ErrNotEmpty) {
		return fmt.Errorf("%s is not empty (use -r)", fs.Arg(0))
	}
	return err
}

func mvCmd(ctx context.Context, client *ftpfs.Client, args []string) error {
	fs := flag.NewFlagSet("mv", flag.ContinueOnError)
	force := fs.Bool("f", false, "overwrite an existing destination")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: mv [-f] <src> <dest>")
	}

	info, err := client.Move(ctx, fs.Arg(0), fs.Arg(1), *force)
	if err != nil {
		return err
	}
	logger.Info("moved to %s", info.Path)
	return nil
}

func touchCmd(ctx context.Context, client *ftpfs.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: touch <path>")
	}

	now := time.Now().UTC()
	_, err := client.UpdateMetadata(ctx, args[0], ftpfs.MetadataSet{ModTime: &now})
	return err
}

func printInfo(ctx context.Context, info *ftpfs.LinkInfo, withHash bool) {
	kind := "-"
	if info.IsDir() {
		kind = "d"
	}

	modified := "-"
	if !info.ModifyTime.IsZero() {
		modified = info.ModifyTime.Format(time.RFC3339)
	}

	fmt.Printf("%s %10d  %s  %s\n", kind, info.Size, modified, info.Path)

	if withHash && info.IsFile() {
		if hash, ok := info.Hash(ctx); ok {
			fmt.Printf("  %s: %s\n", hash.Algorithm, hash.Value)
		}
	}
}
