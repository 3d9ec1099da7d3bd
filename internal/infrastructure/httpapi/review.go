package httpapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"UpdateSentinel/internal/domain"
	"UpdateSentinel/internal/queue"
	"UpdateSentinel/internal/usecase"
)

func nowUTC() time.Time { return time.Now().UTC() }

func (s *Server) listEvents(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	events, err := s.store.ChangeEvents(c.Context(), limit)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	out := make([]eventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, toEventDTO(e))
	}
	return c.JSON(out)
}

func (s *Server) listImpacts(c *fiber.Ctx) error {
	impacts, err := s.store.Impacts(c.Context())
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(impactDTOs(impacts))
}

func (s *Server) listPendingImpacts(c *fiber.Ctx) error {
	impacts, err := s.store.PendingImpacts(c.Context())
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(impactDTOs(impacts))
}

func impactDTOs(impacts []domain.Impact) []impactDTO {
	out := make([]impactDTO, 0, len(impacts))
	for _, i := range impacts {
		out = append(out, toImpactDTO(i))
	}
	return out
}

func (s *Server) approveImpact(c *fiber.Ctx) error {
	return s.decideImpact(c, true)
}

func (s *Server) rejectImpact(c *fiber.Ctx) error {
	return s.decideImpact(c, false)
}

// decideImpact applies a manual review decision. Approval enqueues task
// generation; a second decision on the same impact is a conflict.
func (s *Server) decideImpact(c *fiber.Ctx, approve bool) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}

	var req decisionRequest
	if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return fail(c, fiber.StatusBadRequest, err)
	}
	decidedBy := req.DecidedBy
	if decidedBy == "" {
		decidedBy = "manual-review"
	}

	impact, err := s.store.ImpactByID(c.Context(), id)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}

	if approve {
		err = impact.Approve(decidedBy, nowUTC())
	} else {
		err = impact.Reject(decidedBy, nowUTC())
	}
	if errors.Is(err, domain.ErrAlreadyDecided) {
		return fail(c, fiber.StatusConflict, err)
	}
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}

	saved, err := s.store.SaveImpactDecision(c.Context(), impact)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}

	if approve {
		if err := s.queues.Tasks.Enqueue(queue.TaskGenJob{ImpactID: saved.ID}); err != nil {
			s.logger.Error("enqueue task generation failed", "impact", saved.ID, "error", err)
		}
	}
	return c.JSON(toImpactDTO(saved))
}

func (s *Server) listTasks(c *fiber.Ctx) error {
	ctx := c.Context()

	var (
		tasks []domain.Task
		err   error
	)
	switch {
	case c.Query("status") != "":
		tasks, err = s.store.TasksByStatus(ctx, domain.TaskStatus(c.Query("status")))
	case c.Query("owner") != "":
		tasks, err = s.store.TasksByOwner(ctx, domain.Owner(c.Query("owner")))
	default:
		tasks, err = s.store.Tasks(ctx)
	}
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}

	out := make([]taskDTO, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskDTO(t))
	}
	return c.JSON(out)
}

// updateTask moves a task through its workflow. Invalid transitions are
// client errors, not server faults.
func (s *Server) updateTask(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	var req taskUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}

	task, err := s.store.TaskByID(c.Context(), id)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}

	if req.Status != "" && domain.TaskStatus(req.Status) != task.Status {
		err := task.Transition(domain.TaskStatus(req.Status), req.BlockReason)
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrMissingBlockReason) {
			return fail(c, fiber.StatusUnprocessableEntity, err)
		}
		if err != nil {
			return fail(c, fiber.StatusInternalServerError, err)
		}
	}

	if req.Progress != nil {
		if err := task.SetProgress(*req.Progress); err != nil {
			return fail(c, fiber.StatusUnprocessableEntity, err)
		}
	}
	if req.EvidenceURL != "" {
		task.EvidenceURL = req.EvidenceURL
	}

	saved, err := s.store.SaveTask(c.Context(), task)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(toTaskDTO(saved))
}

func (s *Server) manualRun(c *fiber.Ctx) error {
	report, err := s.monitor.ManualRun(c.Context(), nowUTC())
	if errors.Is(err, usecase.ErrSweepInProgress) {
		return fail(c, fiber.StatusConflict, err)
	}
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(report)
}

// webhookChangeDetected re-injects a persisted change event into the
// classification queue.
func (s *Server) webhookChangeDetected(c *fiber.Ctx) error {
	var req webhookRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	if req.ChangeEventID == uuid.Nil {
		return fail(c, fiber.StatusBadRequest, fmt.Errorf("changeEventId is required"))
	}

	err := s.monitor.Reclassify(c.Context(), domain.ChangeEvent{ID: req.ChangeEventID})
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": true})
}
