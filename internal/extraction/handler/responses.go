package handler

import "schemagate/internal/extraction/coerce"

type ExtractResponse struct {
	Success  bool           `json:"success"`
	Data     *coerce.Result `json:"data"`
	TenantID string         `json:"tenant_id"`
}

type ChatResponse struct {
	Response string `json:"response"`
	TenantID string `json:"tenant_id"`
}
