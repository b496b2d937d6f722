package main

import (
	"context"

	"uefadata-backend/cmd/uefa-pipeline/commands"
	"uefadata-backend/lib/serviceutil"
	"uefadata-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	t, err := telemetry.SetupFromEnv(ctx, "uefa-pipeline")
	if err != nil {
		serviceutil.Fatal("failed to initialize telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InitSlog(false)
	telemetry.InstrumentPerfStats(ctx)

	commands.ExecuteContext(ctx)
}
