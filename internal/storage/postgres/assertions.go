package postgres

import (
	"github.com/splitkhata/splitkhata/internal/eventlog"
	"github.com/splitkhata/splitkhata/internal/service/audit"
	"github.com/splitkhata/splitkhata/internal/service/expense"
	"github.com/splitkhata/splitkhata/internal/service/group"
	khatasvc "github.com/splitkhata/splitkhata/internal/service/khata"
	"github.com/splitkhata/splitkhata/internal/service/payment"
	"github.com/splitkhata/splitkhata/internal/service/settlement"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	// Service layer repos and writers
	_ group.Repo      = (*Store)(nil)
	_ group.Writer    = (*Store)(nil)
	_ expense.Repo    = (*Store)(nil)
	_ expense.Writer  = (*Store)(nil)
	_ payment.Repo    = (*Store)(nil)
	_ payment.Writer  = (*Store)(nil)
	_ settlement.Repo = (*Store)(nil)
	_ audit.Repo      = (*Store)(nil)
	_ audit.Writer    = (*Store)(nil)
	_ khatasvc.Repo   = (*Store)(nil)
	_ khatasvc.Writer = (*Store)(nil)
	_ eventlog.Sink   = (*Store)(nil)
)
