package temporal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/socialpulse/pulsex/pkg/utils"
	"go.uber.org/zap"

	"go.temporal.io/api/enums/v1"
	taskqueuepb "go.temporal.io/api/taskqueue/v1"
	workflowservicepb "go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
	sdktemporal "go.temporal.io/sdk/temporal"
)

// Job keys of the three scheduled triggers.
const (
	JobDaily    = "daily"
	JobBackfill = "backfill"
	JobSummary  = "summary"
)

type Client struct {
	TClient   client.Client
	TSClient  client.ScheduleClient
	Namespace string

	// PipelineQueue is the single task queue every pipeline workflow and
	// activity runs on; the steps of one run are strictly sequential, so one
	// queue is enough.
	PipelineQueue string

	// Schedule IDs, one per trigger.
	DailyScheduleID    string
	BackfillScheduleID string
	SummaryScheduleID  string
}

type Health struct {
	ConnectionOK  bool                      `json:"connection_ok"`
	PipelineQueue []*taskqueuepb.PollerInfo `json:"pipeline_queue"`
}

func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("TEMPORAL_HOSTPORT", "localhost:7233")
	ns := utils.Env("TEMPORAL_NAMESPACE", "pulsex")
	loggerWrapper := NewZapAdapter(logger)

	logger.Info("Connecting to Temporal", zap.String("host", host), zap.String("namespace", ns))
	tClient, err := Dial(ctx, host, ns, loggerWrapper)
	if err != nil {
		return nil, err
	}

	if _, err = tClient.CheckHealth(ctx, nil); err != nil {
		return nil, err
	}

	return &Client{
		TClient:            tClient,
		TSClient:           tClient.ScheduleClient(),
		Namespace:          ns,
		PipelineQueue:      "pipeline",
		DailyScheduleID:    "pipeline:daily",
		BackfillScheduleID: "pipeline:backfill",
		SummaryScheduleID:  "pipeline:summary",
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

// ScheduleID maps a job key to its schedule ID.
func (c *Client) ScheduleID(job string) (string, error) {
	switch job {
	case JobDaily:
		return c.DailyScheduleID, nil
	case JobBackfill:
		return c.BackfillScheduleID, nil
	case JobSummary:
		return c.SummaryScheduleID, nil
	}
	return "", fmt.Errorf("unknown job %q", job)
}

// DailyCronSpec builds the schedule spec of the main daily run from the
// PIPELINE_DAILY_CRON expression (standard five-field cron, UTC). The
// expression is validated locally before it is handed to the server.
func (c *Client) DailyCronSpec() (client.ScheduleSpec, error) {
	expr := utils.Env("PIPELINE_DAILY_CRON", "0 3 * * *")
	if _, err := cron.ParseStandard(expr); err != nil {
		return client.ScheduleSpec{}, fmt.Errorf("invalid PIPELINE_DAILY_CRON %q: %w", expr, err)
	}
	return client.ScheduleSpec{CronExpressions: []string{expr}, TimeZoneName: "UTC"}, nil
}

// FiveMinuteSpec returns the backfill sweep interval spec.
func (c *Client) FiveMinuteSpec() client.ScheduleSpec {
	return c.GetScheduleSpec(5 * time.Minute)
}

// FourHourSpec returns the summary precomputation interval spec.
func (c *Client) FourHourSpec() client.ScheduleSpec {
	return c.GetScheduleSpec(4 * time.Hour)
}

// GetScheduleSpec returns a schedule spec for the given interval.
func (c *Client) GetScheduleSpec(interval time.Duration) client.ScheduleSpec {
	return client.ScheduleSpec{Intervals: []client.ScheduleIntervalSpec{{Every: interval}}}
}

// ScheduleDef describes one schedule to ensure at boot.
type ScheduleDef struct {
	ID       string
	Spec     client.ScheduleSpec
	Workflow string
}

// EnsureSchedules creates the given schedules, tolerating ones that already
// exist. Each trigger skips its own overlapping runs: a slow pass must not
// pile a second instance onto the same data.
func (c *Client) EnsureSchedules(ctx context.Context, logger *zap.Logger, defs []ScheduleDef) error {
	for _, def := range defs {
		_, err := c.TSClient.Create(ctx, client.ScheduleOptions{
			ID:      def.ID,
			Spec:    def.Spec,
			Overlap: enums.SCHEDULE_OVERLAP_POLICY_SKIP,
			Action: &client.ScheduleWorkflowAction{
				Workflow:  def.Workflow,
				TaskQueue: c.PipelineQueue,
			},
		})
		if err != nil {
			if errors.Is(err, sdktemporal.ErrScheduleAlreadyRunning) {
				logger.Debug("Schedule already exists", zap.String("schedule_id", def.ID))
				continue
			}
			return fmt.Errorf("create schedule %s: %w", def.ID, err)
		}
		logger.Info("Created schedule", zap.String("schedule_id", def.ID), zap.String("workflow", def.Workflow))
	}
	return nil
}

// TriggerJob fires one scheduled job immediately. The administrative
// "run now" path is exactly the scheduled unit of work, nothing more.
func (c *Client) TriggerJob(ctx context.Context, job string) error {
	id, err := c.ScheduleID(job)
	if err != nil {
		return err
	}
	handle := c.TSClient.GetHandle(ctx, id)
	return handle.Trigger(ctx, client.ScheduleTriggerOptions{
		Overlap: enums.SCHEDULE_OVERLAP_POLICY_ALLOW_ALL,
	})
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
			TaskQueue:     &taskqueuepb.TaskQueue{Name: c.PipelineQueue},
			TaskQueueType: enums.TASK_QUEUE_TYPE_WORKFLOW,
		}); err == nil {
			h.PipelineQueue = rep.GetPollers()
		}
	}
	return h, nil
}
