package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.StandardLogger()
	if err := run(context.Background(), os.Args[1:], os.Getenv, logger); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
