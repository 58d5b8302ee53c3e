package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"

	"github.com/JaimeStill/botwatch/internal/config"
)

func main() {
	newApp().RunAndExitOnError()
}

func newApp() *cli.App {
	app := &cli.App{
		Name:  "botwatch",
		Usage: "score the likers of social media posts for bot likelihood",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the base TOML config file",
				EnvVars: []string{config.EnvBotwatchConfig},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log at debug level",
			},
		},
		Before: func(cctx *cli.Context) error {
			if path := cctx.String("config"); path != "" {
				return os.Setenv(config.EnvBotwatchConfig, path)
			}
			return nil
		},
	}
	app.Commands = []*cli.Command{
		&cli.Command{
			Name:      "run",
			Usage:     "fetch, score, and summarize the likers of each post",
			ArgsUsage: "[post-url...]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "urls-file",
					Usage: "file with one post url per line",
				},
				&cli.BoolFlag{
					Name:  "json",
					Usage: "print the run summary as JSON",
				},
			},
			Action: runPipeline,
		},
		&cli.Command{
			Name:  "rank",
			Usage: "re-analyze every post directory in the output root",
			Flags: []cli.Flag{
				&cli.Float64Flag{
					Name:  "bot-threshold",
					Usage: "override the configured bot threshold for this pass",
				},
				&cli.BoolFlag{
					Name:  "json",
					Usage: "print the rank summary as JSON",
				},
			},
			Action: runRank,
		},
		&cli.Command{
			Name:   "weights",
			Usage:  "print the effective scoring weights as JSON",
			Action: runWeights,
		},
	}
	return app
}
