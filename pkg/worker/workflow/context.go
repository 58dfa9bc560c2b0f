package workflow

import (
	"github.com/defi-space/indexer/pkg/worker/activity"

	temporalclient "github.com/defi-space/indexer/pkg/temporal"
)

// Context binds workflows to their activity implementations.
type Context struct {
	ActivityContext *activity.Context
	TemporalClient  *temporalclient.Client
}
