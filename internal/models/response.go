package models

// IngestResponse is returned by the bundle ingestion endpoint.
type IngestResponse struct {
	BundleID string          `json:"bundle_id"`
	Filename string          `json:"filename"`
	State    BundleState     `json:"state"`
	Error    string          `json:"error,omitempty"`
	Progress []ProgressEvent `json:"progress"`
	Asset    *AssetBundle    `json:"asset,omitempty"`
}

// AssetListResponse is returned by the asset listing endpoint.
type AssetListResponse struct {
	Assets []AssetBundle `json:"assets"`
	Count  int           `json:"count"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Catalog string `json:"catalog,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
