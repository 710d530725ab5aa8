package metrics

const (
	ClientReqsSentH      = "The total number of requests sent to time servers"
	ClientReqsSentN      = "ntpclock_client_reqs_sent"
	ClientPktsReceivedH  = "The total number of packets received from time servers"
	ClientPktsReceivedN  = "ntpclock_client_pkts_received"
	ClientRespsAcceptedH = "The total number of responses accepted"
	ClientRespsAcceptedN = "ntpclock_client_resps_accepted"
	ClientQueryErrorsH   = "The total number of failed queries by kind"
	ClientQueryErrorsN   = "ntpclock_client_query_errors"
	ClientRoundTripH     = "The round trip time of accepted queries in seconds"
	ClientRoundTripN     = "ntpclock_client_round_trip_seconds"

	SyncAttemptsH    = "The total number of sync cycles"
	SyncAttemptsN    = "ntpclock_sync_attempts"
	SyncSuccessesH   = "The total number of successful sync cycles"
	SyncSuccessesN   = "ntpclock_sync_successes"
	SyncFailuresH    = "The total number of sync cycles in which every server failed"
	SyncFailuresN    = "ntpclock_sync_failures"
	SyncCorrectionsH = "The total number of syncs with drift above the threshold"
	SyncCorrectionsN = "ntpclock_sync_drift_corrections"
	SyncDriftH       = "The drift observed at the last successful sync in seconds"
	SyncDriftN       = "ntpclock_sync_drift_seconds"
	SyncRateH        = "The percentage of successful sync cycles"
	SyncRateN        = "ntpclock_sync_success_rate"
)
