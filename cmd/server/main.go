package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"orgchat/internal/app"
)

// @title        orgchat API
// @version      1.0
// @description  Чаты организации, присутствие и сигнализация звонков.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
