/*
 * Copyright 2025 The Jumpstarter Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/jumpstarter-dev/jumpstarter/pkg/cli"
	"github.com/jumpstarter-dev/jumpstarter/pkg/lifecycle"
	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
)

func main() {
	ctx, stop := lifecycle.SignalContext(context.Background())

	code := run(ctx)

	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	log, err := lifecycle.CreateComponentLogger(ctx, "jmp", &logger.Config{Level: "warn", Output: "stderr"})
	if err != nil {
		log = logger.NewTestLogger()
	}

	runner := cli.NewRunner(os.Stdin, os.Stdout, os.Stderr, log)

	cfg, err := cli.ParseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}

	if err != nil {
		runner.Failure(err)

		return 2
	}

	if err := runner.Run(ctx, cfg); err != nil {
		runner.Failure(err)

		return 1
	}

	return 0
}
