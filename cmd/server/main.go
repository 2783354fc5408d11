package main

import "github.com/adanyl0v/taskboard/internal/app"

func main() {
	app.InitDefaultLogger()
	app.MustReadEnv()
	app.MustInitApplicationLogger()

	app.MustConnectStorage()
	defer app.DisconnectStorage()

	app.MustInitLocker()
	defer app.CloseLocker()

	app.MustListenAndServeHTTP()
}
