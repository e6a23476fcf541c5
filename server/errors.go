package main

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/meikuraledutech/topology"
	"github.com/meikuraledutech/topology/auth"
	"github.com/meikuraledutech/topology/route"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, topology.ErrTopologyNotFound),
		errors.Is(err, topology.ErrNodeNotFound),
		errors.Is(err, topology.ErrEdgeNotFound),
		errors.Is(err, topology.ErrNoPath):
		return fiber.StatusNotFound
	case errors.Is(err, topology.ErrTopologyExists),
		errors.Is(err, topology.ErrDuplicateNode),
		errors.Is(err, topology.ErrDuplicateEdge):
		return fiber.StatusConflict
	case errors.Is(err, topology.ErrCycleDetected),
		errors.Is(err, topology.ErrCluster),
		errors.Is(err, topology.ErrRouting):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, topology.ErrInvalidWeight),
		errors.Is(err, topology.ErrInvalidStatus),
		errors.Is(err, route.ErrInvalidGoal):
		return fiber.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, auth.ErrNoSecret):
		return fiber.StatusNotImplemented
	}
	return fiber.StatusInternalServerError
}

func fail(c fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

func badBody(c fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
}
