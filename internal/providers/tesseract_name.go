package providers

// TesseractName identifies the local OCR provider.
const TesseractName = "tesseract"
