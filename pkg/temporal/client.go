package temporal

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/api/enums/v1"
	taskqueuepb "go.temporal.io/api/taskqueue/v1"
	workflowservicepb "go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"

	"github.com/defi-space/indexer/pkg/utils"
)

type Client struct {
	TClient   client.Client
	TSClient  client.ScheduleClient
	Namespace string

	// Task Queues
	MetricsQueue string // metrics - all recalculation workflows run here

	// Schedule IDs
	FullRecalcScheduleID string

	// Workflow IDs
	AmmMetricsWorkflowId     string
	FarmingMetricsWorkflowId string
	FullRecalcWorkflowId     string
}

type Health struct {
	ConnectionOK bool                      `json:"connection_ok"`
	MetricsQueue []*taskqueuepb.PollerInfo `json:"metrics_queue"`
}

func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("TEMPORAL_HOSTPORT", "localhost:7233")
	ns := utils.Env("TEMPORAL_NAMESPACE", "defi-space")
	loggerWrapper := NewLogAdapter(logger)

	logger.Info("Connecting to Temporal", zap.String("host", host), zap.String("namespace", ns))
	tClient, err := Dial(ctx, host, ns, loggerWrapper)
	if err != nil {
		return nil, err
	}

	if _, err = tClient.CheckHealth(ctx, nil); err != nil {
		return nil, err
	}

	return &Client{
		TClient:   tClient,
		TSClient:  tClient.ScheduleClient(),
		Namespace: ns,
		// for now this is just hardcoded, could be configurable if we need it
		MetricsQueue: "metrics",
		// schedule IDs
		FullRecalcScheduleID: "metrics:full",
		// workflow IDs
		AmmMetricsWorkflowId:     "metrics:amm:%s",
		FarmingMetricsWorkflowId: "metrics:farming:%s",
		FullRecalcWorkflowId:     "metrics:full:%d",
	}, nil
}

// Dial connects to Temporal using the provided hostPort and namespace.
func Dial(ctx context.Context, hostPort, namespace string, logger log.Logger) (client.Client, error) {
	return client.DialContext(
		ctx,
		client.Options{
			HostPort:  hostPort,
			Namespace: namespace,
			Logger:    logger,
		},
	)
}

// GetMetricsQueue returns the metrics queue.
func (c *Client) GetMetricsQueue() string { return c.MetricsQueue }

// GetAmmMetricsWorkflowId returns the workflow ID for a pair-scoped AMM
// recalculation. Scoping the ID by pair dedupes concurrent triggers.
func (c *Client) GetAmmMetricsWorkflowId(pairAddress string) string {
	return fmt.Sprintf(c.AmmMetricsWorkflowId, pairAddress)
}

// GetFarmingMetricsWorkflowId returns the workflow ID for a reactor-scoped
// farming recalculation.
func (c *Client) GetFarmingMetricsWorkflowId(reactorAddress string) string {
	return fmt.Sprintf(c.FarmingMetricsWorkflowId, reactorAddress)
}

// GetFullRecalcWorkflowId returns the workflow ID for a scheduled full
// recalculation pass.
func (c *Client) GetFullRecalcWorkflowId(startedAt int64) string {
	return fmt.Sprintf(c.FullRecalcWorkflowId, startedAt)
}

// GetFullRecalcScheduleID returns the schedule ID for the periodic full pass.
func (c *Client) GetFullRecalcScheduleID() string {
	return c.FullRecalcScheduleID
}

// OneHourSpec returns a schedule spec for one hour.
func (c *Client) OneHourSpec() client.ScheduleSpec {
	return c.GetScheduleSpec(time.Hour)
}

// GetScheduleSpec returns a schedule spec for the given interval.
func (c *Client) GetScheduleSpec(interval time.Duration) client.ScheduleSpec {
	return client.ScheduleSpec{Intervals: []client.ScheduleIntervalSpec{{Every: interval}}}
}

// Health returns the health of the Temporal client.
func (c *Client) Health(ctx context.Context) (Health, error) {
	h := Health{ConnectionOK: true}
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	svc := c.TClient.WorkflowService()
	if svc != nil {
		if rep, err := svc.DescribeTaskQueue(ctx, &workflowservicepb.DescribeTaskQueueRequest{
			Namespace:     c.Namespace,
			TaskQueue:     &taskqueuepb.TaskQueue{Name: c.MetricsQueue},
			TaskQueueType: enums.TASK_QUEUE_TYPE_WORKFLOW,
		}); err == nil {
			h.MetricsQueue = rep.GetPollers()
		}
	}
	return h, nil
}
