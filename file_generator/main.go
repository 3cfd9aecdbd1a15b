package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"p2pindex/util"
)

const NUM_FILES = 5

func main() {
	app := &cli.App{
		Name:      "file_generator",
		Usage:     "fill a directory with random text files to share",
		ArgsUsage: "DIR",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "n", Value: NUM_FILES, Usage: "number of files"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: file_generator [-n N] DIR", 2)
			}

			names, err := util.GenerateFiles(c.Args().First(), c.Int("n"))
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
