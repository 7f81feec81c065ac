// Package ocr defines the recognition capability used for scanned PDFs and
// uploaded images. The pipeline only sees Input and Result; the tesseract
// subpackage provides the engine used in production.
package ocr
