package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID  string    `json:"documentId"`
	FileName    string    `json:"fileName"`
	DisplayName string    `json:"displayName"`
	MimeType    string    `json:"mimeType"`
	SizeBytes   int64     `json:"sizeBytes"`
	HasPreview  bool      `json:"hasPreview"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID:  doc.ID,
		FileName:    doc.FileName,
		DisplayName: doc.DisplayName,
		MimeType:    doc.MimeType,
		SizeBytes:   doc.SizeBytes,
		HasPreview:  doc.ThumbnailKey != "",
		UploadedAt:  doc.UploadedAt,
	}
}
