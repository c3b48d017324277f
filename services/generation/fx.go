package generation

import (
	"teamfit-platform/services/job"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("generation.module",
	fx.Provide(
		NewWorker,
	),
	fx.Invoke(registerHandlers),
)

func registerHandlers(mux *asynq.ServeMux, w *Worker) {
	mux.HandleFunc(job.TaskCustomGeneration, w.HandleCustomGenerationTask)
}
