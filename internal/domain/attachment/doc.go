// Package attachment contains the PDF attachment bounded context.
// Submitted sales documents are rendered to PDF by a background job and
// filed as private attachments under Home/<document type>/<party>.
package attachment
