package tiffio

// Header magic values. Camera makers ship TIFF containers with their own
// magic numbers in place of 42.
const (
	leHeader = "II"
	beHeader = "MM"

	MagicTIFF       = 42
	MagicBigTIFF    = 43
	MagicOlympusRO  = 0x4f52 // "IIRO"
	MagicOlympusRS  = 0x5352 // "IIRS"
	MagicPanasonic  = 0x0055 // "IIU\x00"
	ifdEntryLen     = 12
	maxIFDEntries   = 4096
	maxPages        = 4096
	maxEntryPayload = 64 << 20
)

// Data types.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndefined = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
	dtIFD       = 13
)

var typeLengths = [...]uint32{0, 1, 1, 2, 4, 8, 1, 1, 2, 4, 8, 4, 8, 4}

// Tags.
const (
	TagNewSubfileType            = 254
	TagImageWidth                = 256
	TagImageLength               = 257
	TagBitsPerSample             = 258
	TagCompression               = 259
	TagPhotometricInterpretation = 262
	TagStripOffsets              = 273
	TagOrientation               = 274
	TagSamplesPerPixel           = 277
	TagRowsPerStrip              = 278
	TagStripByteCounts           = 279
	TagPlanarConfiguration       = 284
	TagPredictor                 = 317
	TagTileWidth                 = 322
	TagTileOffsets               = 324
	TagSubIFDs                   = 330
	TagExtraSamples              = 338
	TagSampleFormat              = 339
	TagJPEGInterchangeFormat     = 513
	TagJPEGInterchangeFormatLen  = 514
	TagExifIFD                   = 34665
)

// Compression schemes.
const (
	CompressionNone       = 1
	CompressionLZW        = 5
	CompressionOldJPEG    = 6
	CompressionJPEG       = 7
	CompressionDeflate    = 8
	CompressionPackBits   = 32773
	CompressionDeflateOld = 32946
	CompressionZSTD       = 50000
)

// Photometric interpretations.
const (
	PhotometricWhiteIsZero = 0
	PhotometricBlackIsZero = 1
	PhotometricRGB         = 2
	PhotometricPaletted    = 3
	PhotometricYCbCr       = 6
)

const (
	predictorNone       = 1
	predictorHorizontal = 2

	planarChunky = 1
	planarPlanar = 2

	sampleFormatUint = 1
)
