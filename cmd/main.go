/*
 *  main.go
 *  cmd
 *
 *  Created by Haibao Tang on 01/22/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/op/go-logging"
	"github.com/tanghaibao/c3s"
)

// main is the entrypoint for the entire program, routes to commands
func main() {
	logging.SetBackend(c3s.BackendFormatter)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}
