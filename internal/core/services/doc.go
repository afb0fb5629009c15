// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
//   - Fetcher and Upserter: the two pipeline stages
//   - PipelineService: runs both stages once per invocation
//   - Scheduler: invokes the pipeline on a cron schedule
//   - QueryTool: validated search_documents tool
//   - AgentService: one-tool-call-per-turn LLM loop
package services
