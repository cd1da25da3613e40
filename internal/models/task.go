package models

// TaskCategory identifies one automation category for schedule evaluation.
// Each category's last run is derived from its own result records, never
// from a separate mutable counter.
type TaskCategory string

// TaskCategory constants
const (
	CategoryContext              TaskCategory = "context"
	CategoryCompetitors          TaskCategory = "competitors"
	CategoryQueries              TaskCategory = "queries"
	CategoryScan                 TaskCategory = "scan"
	CategoryDiscovery            TaskCategory = "discovery"
	CategoryCompetitorContent    TaskCategory = "competitor_content"
	CategoryNetworkExpansion     TaskCategory = "network_expansion"
	CategoryCitationVerification TaskCategory = "citation_verification"
)

// TaskType names a dispatchable unit of work. Top-level task types are the
// classifier buckets; step task types are the individually leased pipeline
// steps those buckets fan out into.
type TaskType string

// Top-level bucket task types
const (
	TaskFullRefresh          TaskType = "full_refresh"
	TaskIncrementalUpdate    TaskType = "incremental_update"
	TaskScanOnly             TaskType = "scan_only"
	TaskDiscoveryScan        TaskType = "discovery_scan"
	TaskCompetitorContent    TaskType = "competitor_content"
	TaskNetworkExpansion     TaskType = "network_expansion"
	TaskCitationVerification TaskType = "citation_verification"
)

// Pipeline step task types
const (
	TaskExtractContext      TaskType = "extract_context"
	TaskDiscoverCompetitors TaskType = "discover_competitors"
	TaskGenerateQueries     TaskType = "generate_queries"
	TaskRunScan             TaskType = "run_scan"
	TaskGenerateMemo        TaskType = "generate_memo"
	TaskPushContent         TaskType = "push_content"
	TaskVerifyCitation      TaskType = "verify_citation"
)

// ScanKind distinguishes the result table a scan feeds, which in turn drives
// the per-category last-run derivation.
type ScanKind string

// ScanKind constants
const (
	ScanKindBrand             ScanKind = "brand"
	ScanKindDiscovery         ScanKind = "discovery"
	ScanKindCompetitorContent ScanKind = "competitor_content"
	ScanKindNetworkExpansion  ScanKind = "network_expansion"
)

// ScanKindFor maps a side-channel task type to its scan kind
func ScanKindFor(task TaskType) ScanKind {
	switch task {
	case TaskDiscoveryScan:
		return ScanKindDiscovery
	case TaskCompetitorContent:
		return ScanKindCompetitorContent
	case TaskNetworkExpansion:
		return ScanKindNetworkExpansion
	default:
		return ScanKindBrand
	}
}
