//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of ndjstrip.
//
// ndjstrip is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// ndjstrip is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with ndjstrip. If not, see https://www.gnu.org/licenses/.

// Command ndjstrip removes the state_code field from every record of
// revocations_matrix_distribution_by_race.json and writes the result to
// revocations_matrix_distribution_by_race_updated.json, both in the working
// directory. It takes no arguments.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/aaronlmathis/ndjstrip"
)

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "ndjstrip",
		Short:        "Remove " + ndjstrip.TargetField + " from every record of " + ndjstrip.InputFile,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := ndjstrip.Run(cmd.Context())
			return err
		},
	}
}

func main() {
	err := newRootCmd().ExecuteContext(context.Background())
	klog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
