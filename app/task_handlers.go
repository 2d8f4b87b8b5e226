package projecthub

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/putto11262002/projecthub/core"
	"github.com/putto11262002/projecthub/pkg/router"
)

type TaskHandler struct {
	store core.TaskStore
}

func NewTaskHandler(store core.TaskStore) *TaskHandler {
	return &TaskHandler{store: store}
}

func (h *TaskHandler) GetTasksHandler(w http.ResponseWriter, r *http.Request) error {
	offset, limit, err := paging(r)
	if err != nil {
		return err
	}
	query := r.URL.Query()
	tasks, err := h.store.GetTasks(r.Context(), core.TaskFilter{
		ProjectID:  query.Get("project_id"),
		AssigneeID: query.Get("assignee_id"),
		Status:     core.TaskStatus(query.Get("status")),
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusOK, emptyIfNil(tasks))
}

func (h *TaskHandler) CreateTaskHandler(w http.ResponseWriter, r *http.Request) error {
	var input core.TaskCreateInput
	if err := decodeJSON(r, &input); err != nil {
		return err
	}
	task, err := h.store.CreateTask(r.Context(), input)
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) GetTaskHandler(w http.ResponseWriter, r *http.Request) error {
	task, err := h.store.GetTaskByID(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		return err
	}
	if task == nil {
		return router.NotFound(core.ErrTaskNotFound.Error())
	}
	return router.WriteJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) UpdateTaskHandler(w http.ResponseWriter, r *http.Request) error {
	var input core.TaskUpdateInput
	if err := decodeJSON(r, &input); err != nil {
		return err
	}
	task, err := h.store.UpdateTask(r.Context(), chi.URLParam(r, "taskID"), input)
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) DeleteTaskHandler(w http.ResponseWriter, r *http.Request) error {
	if err := h.store.DeleteTask(r.Context(), chi.URLParam(r, "taskID")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
