// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "fabmatch",
		Usage: "Recommend fabrication equipment for natural language requests",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML configuration file",
				EnvVars: []string{"FABMATCH_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides config)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Model server host URL for embeddings and generation (overrides config)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "seed",
				Usage:  "Load equipment from the JSON data file and embed new records",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Equipment data file (overrides config)",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Reload and re-embed even when the data file is unchanged",
					},
					&cli.BoolFlag{
						Name:  "prune",
						Usage: "Delete stored equipment missing from the data file",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to embed per request",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate embeddings for all stored equipment",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name (overrides config)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to embed per request",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a single request",
				ArgsUsage: "<query>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of recommendations (1-10)",
						Value:   5,
					},
					&cli.StringFlag{
						Name:  "institution",
						Usage: "Institution of the requesting user",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the response as JSON",
					},
				},
			},
			{
				Name:   "chat",
				Usage:  "Interactive session with follow-up questions",
				Action: chatCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of recommendations (1-10)",
						Value:   5,
					},
					&cli.StringFlag{
						Name:  "institution",
						Usage: "Institution of the requesting user",
					},
				},
			},
			{
				Name:   "policy",
				Usage:  "Show the loaded policy tables and settings",
				Action: policyCommand,
			},
			{
				Name:   "status",
				Usage:  "Show catalogue and index counts",
				Action: statusCommand,
			},
		},
	}
}
