package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"reldb/config"
	"reldb/exitcode"
	"reldb/manager"
	"reldb/query"
	"reldb/release"
)

func main() {
	cmd := &cli.Command{
		Name:  "reldb",
		Usage: "Manage and query the Garden Linux release database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Load config from `FILE`",
				Sources: cli.EnvVars("RELDB_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("RELDB_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "s3_endpoint",
				Usage:   "S3 endpoint URL",
				Sources: cli.EnvVars("RELDB_S3_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:    "s3_bucket",
				Usage:   "S3 bucket name",
				Sources: cli.EnvVars("RELDB_S3_BUCKET"),
			},
			&cli.StringFlag{
				Name:    "s3_access_key",
				Usage:   "S3 access key",
				Sources: cli.EnvVars("RELDB_S3_ACCESS_KEY"),
			},
			&cli.StringFlag{
				Name:    "s3_secret_key",
				Usage:   "S3 secret key",
				Sources: cli.EnvVars("RELDB_S3_SECRET_KEY"),
			},
			&cli.StringFlag{
				Name:    "github_token",
				Usage:   "GitHub API token",
				Sources: cli.EnvVars("RELDB_GITHUB_TOKEN", "GITHUB_TOKEN"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			level := slog.LevelInfo
			if err := level.UnmarshalText([]byte(command.String("log-level"))); err != nil {
				return ctx, fmt.Errorf("invalid log level %q", command.String("log-level"))
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			cfg := config.New()

			if command.String("config") != "" {
				if err := cfg.Load(command.String("config")); err != nil {
					return ctx, err
				}
			}

			for _, k := range []string{
				"s3_endpoint",
				"s3_bucket",
				"s3_access_key",
				"s3_secret_key",
				"github_token",
			} {
				if command.String(k) != "" {
					switch k {
					case "s3_endpoint":
						cfg.S3Endpoint = command.String(k)
					case "s3_bucket":
						cfg.S3Bucket = command.String(k)
					case "s3_access_key":
						cfg.S3AccessKey = command.String(k)
					case "s3_secret_key":
						cfg.S3SecretKey = command.String(k)
					case "github_token":
						cfg.GitHubToken = command.String(k)
					}
				}
			}

			return context.WithValue(ctx, "config", cfg), nil
		},
		Commands: []*cli.Command{
			manageCommand(),
			queryCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error(err.Error())
		os.Exit(exitcode.Code(err))
	}
}

func manageCommand() *cli.Command {
	return &cli.Command{
		Name:  "manage",
		Usage: "Create, delete and upload release records",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "create",
				Usage: "Create a release of type (stable, patch, nightly, dev, next)",
			},
			&cli.StringFlag{
				Name:  "create-initial",
				Usage: "Reconstruct initial history for types (comma separated: stable, patch, nightly)",
			},
			&cli.StringFlag{
				Name:  "delete",
				Usage: "Delete a release by name (e.g. nightly-1592.0)",
			},
			&cli.StringFlag{
				Name:  "version",
				Usage: "Version of the release to create (e.g. 1592.1), derived when omitted",
			},
			&cli.StringFlag{
				Name:  "commit",
				Usage: "Full commit hash for the release, resolved when omitted",
			},
			&cli.StringFlag{
				Name:  "lifecycle-released-isodatetime",
				Usage: "Release date and time (YYYY-MM-DDTHH:MM:SS), defaults to now",
			},
			&cli.StringFlag{
				Name:  "lifecycle-extended-isodatetime",
				Usage: "Start of extended maintenance (YYYY-MM-DDTHH:MM:SS)",
			},
			&cli.StringFlag{
				Name:  "lifecycle-eol-isodatetime",
				Usage: "End of maintenance (YYYY-MM-DDTHH:MM:SS)",
			},
			&cli.BoolFlag{
				Name:  "input",
				Usage: "Read release definitions from a file",
			},
			&cli.StringFlag{
				Name:  "input-file",
				Usage: "File with release definitions",
				Value: "releases-input.yaml",
			},
			&cli.BoolFlag{
				Name:  "input-stdin",
				Usage: "Read release definitions from stdin",
			},
			&cli.BoolFlag{
				Name:  "update-attributes",
				Usage: "Recompute derived release attributes over the existing records",
			},
			&cli.BoolFlag{
				Name:  "no-query",
				Usage: "Do not query existing releases, start from scratch",
			},
			&cli.StringFlag{
				Name:  "output-format",
				Usage: "Local output format (json, yaml)",
				Value: "json",
			},
			&cli.StringFlag{
				Name:  "output-file-prefix",
				Usage: "Prefix for the output files",
				Value: "releases",
			},
			&cli.BoolFlag{
				Name:  "no-output-split",
				Usage: "Write one combined file instead of one file per type",
			},
			&cli.BoolFlag{
				Name:  "s3-update",
				Usage: "Update the S3 release database",
			},
			&cli.BoolFlag{
				Name:  "output-all",
				Usage: "Download all release files from S3",
			},
			&cli.BoolFlag{
				Name:  "input-all",
				Usage: "Upload all local release files to S3",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			opts := manager.Options{
				Create:           command.String("create"),
				CreateInitial:    command.String("create-initial"),
				Delete:           command.String("delete"),
				Version:          command.String("version"),
				Commit:           command.String("commit"),
				ReleasedAt:       command.String("lifecycle-released-isodatetime"),
				ExtendedAt:       command.String("lifecycle-extended-isodatetime"),
				EolAt:            command.String("lifecycle-eol-isodatetime"),
				Input:            command.Bool("input"),
				InputFile:        command.String("input-file"),
				InputStdin:       command.Bool("input-stdin"),
				UpdateAttributes: command.Bool("update-attributes"),
				NoQuery:          command.Bool("no-query"),
				OutputFormat:     command.String("output-format"),
				OutputPrefix:     command.String("output-file-prefix"),
				NoOutputSplit:    command.Bool("no-output-split"),
				S3Update:         command.Bool("s3-update"),
				OutputAll:        command.Bool("output-all"),
				InputAll:         command.Bool("input-all"),
			}
			if opts.Create == "" && opts.CreateInitial == "" && opts.Delete == "" &&
				!opts.Input && !opts.InputStdin && !opts.UpdateAttributes &&
				!opts.OutputAll && !opts.InputAll {
				return exitcode.Wrap(exitcode.ParameterMissing,
					fmt.Errorf("one of '--create', '--create-initial', '--delete', '--input', '--input-stdin', '--update-attributes', '--output-all' or '--input-all' is required"))
			}

			mgr, err := manager.New(ctx.Value("config").(*config.Config), slog.Default())
			if err != nil {
				return err
			}
			defer mgr.Close()
			return mgr.Run(ctx, opts)
		},
	}
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Query and render release records",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "input-type",
				Usage: "Where to read releases from (url, file)",
				Value: "url",
			},
			&cli.StringFlag{
				Name:  "input-url",
				Usage: "Base URL of the release database",
			},
			&cli.StringFlag{
				Name:  "input-file-prefix",
				Usage: "Prefix of the release files",
				Value: "releases",
			},
			&cli.StringFlag{
				Name:  "input-format",
				Usage: "Input format (json, yaml)",
				Value: "json",
			},
			&cli.BoolFlag{
				Name:  "no-input-split",
				Usage: "Read one combined file instead of one file per type",
			},
			&cli.StringFlag{
				Name:  "type",
				Usage: "Release types to query (comma separated)",
				Value: "stable,patch",
			},
			&cli.StringFlag{
				Name:  "version",
				Usage: "Filter by version (major or major.minor)",
			},
			&cli.BoolFlag{
				Name:  "latest",
				Usage: "Only show the latest matching release",
			},
			&cli.BoolFlag{
				Name:  "active",
				Usage: "Only show releases that have not reached end of maintenance",
			},
			&cli.BoolFlag{
				Name:  "archived",
				Usage: "Only show releases past end of maintenance",
			},
			&cli.StringFlag{
				Name:  "output-format",
				Usage: "Output format (shell, json, yaml, markdown, mermaid_gantt)",
				Value: "shell",
			},
			&cli.StringFlag{
				Name:  "fields",
				Usage: "Comma separated fields for tabular output",
			},
			&cli.BoolFlag{
				Name:  "no-header",
				Usage: "Omit the header row in tabular output",
			},
			&cli.StringFlag{
				Name:  "output-description",
				Usage: "Title for the mermaid_gantt output",
				Value: "Garden Linux releases",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg := ctx.Value("config").(*config.Config)

			types, err := query.ParseTypes(command.String("type"))
			if err != nil {
				return exitcode.Wrap(exitcode.Query, err)
			}

			url := command.String("input-url")
			if url == "" {
				url = cfg.QueryURL
			}
			src := query.Source{
				Type:    command.String("input-type"),
				URL:     url,
				Prefix:  command.String("input-file-prefix"),
				Format:  command.String("input-format"),
				NoSplit: command.Bool("no-input-split"),
			}

			releases, err := query.LoadAll(src, types)
			if err != nil {
				return err
			}
			releases = query.FilterTypes(releases, types)

			if v := command.String("version"); v != "" {
				releases, err = query.FilterVersion(releases, v)
				if err != nil {
					return exitcode.Wrap(exitcode.Query, err)
				}
			}
			if command.Bool("active") {
				releases = query.FilterActive(releases, time.Now())
			}
			if command.Bool("archived") {
				releases = query.FilterArchived(releases, time.Now())
			}
			release.Sort(releases)
			if command.Bool("latest") {
				latest := release.Latest(releases)
				if latest == nil {
					return exitcode.Wrap(exitcode.NoReleases, fmt.Errorf("no releases found"))
				}
				releases = []*release.Release{latest}
			}
			if len(releases) == 0 {
				return exitcode.Wrap(exitcode.NoReleases, fmt.Errorf("no releases found"))
			}

			urls := query.URLConfig{
				ArtifactsBaseURL:   cfg.ArtifactsBaseURL,
				ArtifactsPrefix:    cfg.ArtifactsPrefix,
				ContainerRegistry:  cfg.ContainerRegistry,
				PlatformExtensions: cfg.PlatformExtensions,
			}

			var out string
			switch format := command.String("output-format"); format {
			case "shell", "markdown":
				out, err = query.FormatTable(releases, command.String("fields"),
					command.Bool("no-header"), format == "markdown", urls)
				if err != nil {
					return exitcode.Wrap(exitcode.InvalidField, err)
				}
			case "json", "yaml":
				out, err = query.FormatStructured(releases, format, urls)
				if err != nil {
					return err
				}
			case "mermaid_gantt":
				out = query.FormatGantt(command.String("output-description"), releases)
			default:
				return exitcode.Wrap(exitcode.Format, fmt.Errorf("unknown output format %q", format))
			}

			fmt.Println(out)
			return nil
		},
	}
}
