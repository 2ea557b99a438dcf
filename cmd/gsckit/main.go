package main

import (
	"context"
	"errors"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	cmd := newCommand(os.Stdout, log)
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		code := 1
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			code = exit.ExitCode()
		}
		log.Error(err)
		os.Exit(code)
	}
}
