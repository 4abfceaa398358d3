package main

import (
	"github.com/iamprecieee/distributed-notification-system/internal/app"
	"go.uber.org/fx"
)

// main is the entry point for the push notification worker.
func main() {
	fx.New(app.WorkerModule).Run()
}
