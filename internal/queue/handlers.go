package queue

import (
	"context"

	"github.com/hibiken/asynq"
)

// HandlersRegistry maps task types to their handlers for the worker binary.
type HandlersRegistry struct {
	mux *asynq.ServeMux
}

func NewHandlersRegistry() *HandlersRegistry {
	return &HandlersRegistry{
		mux: asynq.NewServeMux(),
	}
}

func (r *HandlersRegistry) Register(taskType string, handler func(context.Context, *asynq.Task) error) {
	r.mux.HandleFunc(taskType, handler)
}

func (r *HandlersRegistry) Mux() *asynq.ServeMux {
	return r.mux
}
