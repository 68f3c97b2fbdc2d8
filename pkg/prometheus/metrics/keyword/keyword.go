package keyword

const (
	TotalHttpRequestsMetricName    = "http_requests_total"
	TotalHttpResponsesMetricName   = "http_responses_total"
	HttpResponseStatusesMetricName = "http_response_statuses"
	HttpResponseTimeMsMetricName   = "http_response_time_ms"

	LiveHandlesMetricName     = "shared_handle_live_total"
	HandlesCreatedMetricName  = "shared_handle_created_total"
	HandlesClonedMetricName   = "shared_handle_cloned_total"
	HandlesReleasedMetricName = "shared_handle_released_total"
	ValuesDestroyedMetricName = "shared_handle_values_destroyed_total"
	AllocFailuresMetricName   = "shared_handle_alloc_failures_total"
	WeakUpgradesMetricName    = "shared_handle_weak_upgrades_total"
	ArenaUsedBytesMetricName  = "shared_handle_arena_used_bytes"
	RegistryEntriesMetricName = "shared_handle_registry_entries"
)
