package handlers

import (
	"errors"

	"github.com/Baltarist/Perscrum-sub000/services"
)

var (
	errForbidden       = errors.New("forbidden")
	errSprintNotActive = errors.New("sprint is not active")
)

var (
	aiGate     *services.AIGate
	aiProvider services.AIProvider
)

// Init wires the AI gate and provider; called once from main before routes
// are registered.
func Init(gate *services.AIGate, provider services.AIProvider) {
	aiGate = gate
	aiProvider = provider
}
