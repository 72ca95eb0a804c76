/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package proofpass-rest (ProofPass Agent REST Server) of proofpass-go.
//
//
// Terms Of Service:
//
//
//     Schemes: https
//     Version: 0.1.0
//     License: SPDX-License-Identifier: Apache-2.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
// swagger:meta
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/proofpass/proofpass-go/cmd/proofpass-rest/startcmd"
	"github.com/proofpass/proofpass-go/pkg/common/log"
)

// This is an application which starts ProofPass agent controller API on given port.
func main() {
	logger := log.New("proofpass/agent-rest")

	// a local .env file is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warnf("failed to load .env file: %s", err)
	}

	rootCmd := &cobra.Command{
		Use: "proofpass-rest",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	startCmd, err := startcmd.Cmd(&startcmd.HTTPServer{})
	if err != nil {
		logger.Fatalf(err.Error())
	}

	rootCmd.AddCommand(startCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("Failed to run proofpass-rest: %s", err)
	}
}
