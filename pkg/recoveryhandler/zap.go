// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

// Package recoveryhandler adapts gorilla's panic recovery middleware to zap.
package recoveryhandler

import (
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"go.uber.org/zap"
)

// zapRecoveryWrapper satisfies gorilla's RecoveryLogger with a zap logger.
type zapRecoveryWrapper struct {
	logger *zap.Logger
}

func (z zapRecoveryWrapper) Println(args ...any) {
	z.logger.Error(fmt.Sprintln(args...))
}

// NewRecoveryHandler returns middleware that converts handler panics into
// 500 responses, logging the panic through zap.
func NewRecoveryHandler(logger *zap.Logger, printStack bool) func(h http.Handler) http.Handler {
	wrapper := zapRecoveryWrapper{logger: logger}
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(wrapper),
		handlers.PrintRecoveryStack(printStack))
}
