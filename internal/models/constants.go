package models

const (
	OutputFormatConsole  = "console"
	OutputFormatJSON     = "json"
	OutputFormatCSV      = "csv"
	OutputFormatParquet  = "parquet"
	OutputFormatKafka    = "kafka"
	OutputFormatPostgres = "postgres"
	OutputFormatNone     = "none"

	OutputDestinationLocal = "local"
	OutputDestinationS3    = "s3"

	TopicStepMetrics    = "step_metrics_events"
	TopicAgentPositions = "agent_position_events"
	TopicSpotCleaned    = "spot_cleaned_events"
	TopicRunSummary     = "run_summary_events"

	StopReasonAllClean   = "all_clean"
	StopReasonStepBudget = "step_budget"
	StopReasonCancelled  = "cancelled"
)
