package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	dirhash "github.com/mattkeenan/dirhash/pkg"
)

// rootOptions holds the parsed command line
type rootOptions struct {
	chunkSize   string
	algorithm   string
	noSymlinks  bool
	writeCache  string
	checkCache  string
	exclude     []string
	excludeFrom string
	workers     int
	configPath  string
	format      string
	verbose     int
	debug       string
	listAlgos   bool
	version     bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "dirhash DIRECTORY",
		Short: "Compute a deterministic digest of a directory tree",
		Long: `Computes a single digest over a directory tree.

The digest covers relative paths, entry kinds, file contents and symbolic
link targets. It does not depend on listing order, timestamps, permissions,
the chunk size or the number of workers. Symbolic links are recorded by
their target string and never followed; --no-symlinks leaves them out.

Defaults can be read from an INI file with --config; flags override it.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.listAlgos || opts.version {
				return nil
			}
			if len(args) != 1 {
				return &usageError{fmt.Errorf("expected exactly one DIRECTORY argument, got %d", len(args))}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(cmd, opts, args, stdout)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.chunkSize, "chunksize", "c", strconv.Itoa(dirhash.DefaultChunkSize),
		"Maximum bytes read from a file at once (e.g. 1000000, 64K, 1M)")
	flags.StringVarP(&opts.algorithm, "algo", "a", dirhash.DefaultAlgorithm,
		"Hash algorithm ("+strings.Join(dirhash.SupportedHashAlgorithms(), ", ")+")")
	flags.BoolVar(&opts.noSymlinks, "no-symlinks", false,
		"Leave symbolic links out of the digest")
	flags.StringVar(&opts.writeCache, "write-cache", "",
		"Store the digest in an INI cache file (.zst suffix compresses it)")
	flags.StringVar(&opts.checkCache, "check-cache", "",
		"Compare the digest against a cache file, failing on mismatch")
	flags.StringArrayVarP(&opts.exclude, "exclude", "x", nil,
		"Regular expression of relative paths to leave out (repeatable)")
	flags.StringVar(&opts.excludeFrom, "exclude-from", "",
		"File of exclude regular expressions, one per line")
	flags.IntVarP(&opts.workers, "workers", "w", dirhash.DefaultHashWorkers,
		"Concurrent file hashing workers")
	flags.StringVar(&opts.configPath, "config", "",
		"INI configuration file")
	flags.StringVar(&opts.format, "format", dirhash.OutputFormatHuman,
		"Output format (human, json)")
	flags.IntVarP(&opts.verbose, "verbose", "v", 0,
		"Verbose level 0-3, logged to stderr")
	flags.StringVar(&opts.debug, "debug", "",
		"Comma separated debug flags (scan, hash, cache)")
	flags.BoolVar(&opts.listAlgos, "list-algos", false,
		"List supported hash algorithms and exit")
	flags.BoolVar(&opts.version, "version", false,
		"Print the version and exit")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	return cmd
}

// flagOverrides turns explicitly set flags into config overrides
func flagOverrides(cmd *cobra.Command, opts *rootOptions) []string {
	var overrides []string
	flags := cmd.Flags()

	if flags.Changed("algo") {
		overrides = append(overrides, "algorithm:"+opts.algorithm)
	}
	if flags.Changed("chunksize") {
		overrides = append(overrides, "chunk_size:"+opts.chunkSize)
	}
	if flags.Changed("no-symlinks") && opts.noSymlinks {
		overrides = append(overrides, "mode:"+dirhash.SymlinkModeIgnore)
	}
	if flags.Changed("workers") {
		overrides = append(overrides, "hash_workers:"+strconv.Itoa(opts.workers))
	}
	if flags.Changed("format") {
		overrides = append(overrides, "format:"+opts.format)
	}
	if flags.Changed("verbose") {
		overrides = append(overrides, "level:"+strconv.Itoa(opts.verbose))
	}
	if flags.Changed("debug") {
		overrides = append(overrides, "debug:"+opts.debug)
	}

	return overrides
}

func runDigest(cmd *cobra.Command, opts *rootOptions, args []string, stdout io.Writer) error {
	if opts.version {
		fmt.Fprintf(stdout, "dirhash %s\n", dirhash.Version)
		return nil
	}
	if opts.listAlgos {
		for _, name := range dirhash.SupportedHashAlgorithms() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	}

	root := args[0]
	format := opts.format
	result, cached, err := digestRoot(cmd, opts, root, &format)
	if err != nil {
		_ = dirhash.WriteError(stdout, root, err, format)
		return err
	}
	return dirhash.WriteResult(stdout, result, format, cached)
}

// digestRoot computes the digest of root and applies the cache flags. Nothing
// is printed here, so a failed cache check or write leaves stdout empty. format
// is updated as soon as the configured output format is known.
func digestRoot(cmd *cobra.Command, opts *rootOptions, root string, format *string) (*dirhash.Result, bool, error) {
	cfg, err := dirhash.LoadConfig(opts.configPath)
	if err != nil {
		return nil, false, err
	}
	if !cmd.Flags().Changed("format") {
		*format = cfg.GetOutputConfig().Format
	}
	if err := cfg.ApplyOverrides(flagOverrides(cmd, opts)); err != nil {
		return nil, false, err
	}
	*format = cfg.GetOutputConfig().Format

	verboseConfig := cfg.GetVerboseConfig()
	dirhash.SetVerboseLevel(verboseConfig.Level)
	dirhash.InitDebugFlags(verboseConfig.Debug)
	dirhash.LogDebugFlags()
	if path := cfg.Path(); path != "" {
		dirhash.VerboseLog(1, "configuration loaded from %s", path)
	}

	digestOpts, err := cfg.Options()
	if err != nil {
		return nil, false, err
	}
	digestOpts.Exclude = append(digestOpts.Exclude, opts.exclude...)
	if opts.excludeFrom != "" {
		ignore, err := dirhash.NewIgnoreManager(nil)
		if err != nil {
			return nil, false, err
		}
		if err := ignore.LoadIgnoreFile(opts.excludeFrom); err != nil {
			return nil, false, err
		}
		digestOpts.Exclude = append(digestOpts.Exclude, ignore.Patterns()...)
	}

	dirhash.VerboseLog(1, "hashing %s with %s (chunk %d, symlinks %s, %d workers)",
		root, digestOpts.Algorithm, digestOpts.ChunkSize, digestOpts.SymlinkPolicy, digestOpts.Workers)

	var result *dirhash.Result
	cached := false
	if opts.checkCache != "" {
		var record *dirhash.CacheRecord
		result, record, cached, err = dirhash.VerifyDirectory(cmd.Context(), opts.checkCache, root, digestOpts)
		if err != nil {
			return nil, false, err
		}
		if record == nil {
			return nil, false, fmt.Errorf("no cache record for %s in %s", result.Root, opts.checkCache)
		}
		if !cached {
			return nil, false, fmt.Errorf("digest mismatch for %s: cached %s (%s), computed %s",
				result.Root, record.Digest, record.Timestamp.Format("2006-01-02 15:04:05"), result.Digest)
		}
		dirhash.VerboseLog(1, "digest matches cache record from %s", record.Timestamp.Format("2006-01-02 15:04:05"))
	} else {
		result, err = dirhash.DigestDirectory(cmd.Context(), root, digestOpts)
		if err != nil {
			return nil, false, err
		}
	}

	if opts.writeCache != "" {
		if err := dirhash.WriteCacheRecord(opts.writeCache, dirhash.NewCacheRecord(result, digestOpts.Exclude)); err != nil {
			return nil, false, fmt.Errorf("failed to write cache %s: %w", opts.writeCache, err)
		}
		dirhash.VerboseLog(1, "cache record written to %s", opts.writeCache)
	}

	return result, cached, nil
}
