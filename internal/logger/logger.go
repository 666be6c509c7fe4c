package logger

import "go.uber.org/zap"

var Log = zap.NewNop()

func Init(appEnv string) {
	if appEnv == "development" || appEnv == "test" {
		Log = zap.Must(zap.NewDevelopment())
		return
	}
	Log = zap.Must(zap.NewProduction())
}

func Sync() {
	_ = Log.Sync()
}
