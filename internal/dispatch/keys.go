package dispatch

import "time"

// 缓存键与过期时间
const (
	KeyAlertsAll        = "alerts:all"
	KeyAlertsUnassigned = "alerts:unassigned"
	KeyAlertsWaitlist   = "alerts:waitlist"
	KeyAlertsDispatched = "alerts:dispatched"
	KeyAlertsPattern    = "alerts:*"
	KeyMapLatest        = "mapAlerts:latestPerTerminal"
	KeyMapOccupied      = "mapAlerts:allOccupied"
	KeyMapPattern       = "mapAlerts:*"

	KeyRescueFormsAll        = "rescueForms:all"
	KeyRescueAggregatesAll   = "rescueAggregatesBasic:all"
	KeyRescueAggregatesScope = "rescueAggregatesBasic:*"

	KeyPendingReports       = "pendingReports"
	KeyCompletedReports     = "completedReports"
	KeyAggregatedReports    = "aggregatedReports:*"
	KeyAggregatedPostRescue = "aggregatedPRF:*"
)

const (
	AlertTTL           = 10 * time.Second
	RescueFormTTL      = 300 * time.Second
	PendingReportsTTL  = time.Second
	CompletedReportTTL = 30 * time.Second
	AggregateTTL       = 300 * time.Second
)

func alertKey(id string) string { return "alert:" + id }

func rescueFormKey(id string) string { return "rescueForm:" + id }

func rescueAggregatesKey(alertID string) string {
	if alertID == "" {
		return KeyRescueAggregatesAll
	}
	return "rescueAggregatesBasic:" + alertID
}

func aggregatedReportsKey(alertID string) string {
	if alertID == "" {
		alertID = "all"
	}
	return "aggregatedReports:" + alertID
}

func aggregatedPostRescueKey(alertID string) string {
	if alertID == "" {
		alertID = "all"
	}
	return "aggregatedPRF:" + alertID
}

func alertListKey(status string) string {
	switch status {
	case "Unassigned":
		return KeyAlertsUnassigned
	case "Waitlist":
		return KeyAlertsWaitlist
	case "Dispatched":
		return KeyAlertsDispatched
	}
	return KeyAlertsAll
}
