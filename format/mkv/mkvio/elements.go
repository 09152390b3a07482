package mkvio

const (
	ElementTypeUnknown uint8 = iota
	ElementTypeMaster
	ElementTypeUint
	ElementTypeInt
	ElementTypeString
	ElementTypeUnicode
	ElementTypeBinary
	ElementTypeFloat
	ElementTypeDate
)

// LevelGlobal marks elements allowed at any depth.
const LevelGlobal = -1

var registry = make(map[uint32]ElementRegister, 192)

func register(id uint32, typ uint8, name string, level int) ElementRegister {
	reg := ElementRegister{ID: id, Type: typ, Name: name, Level: level}
	registry[id] = reg
	return reg
}

var (
	ElementEBML                        = register(0x1a45dfa3, ElementTypeMaster, "EBML", 0)
	ElementEBMLVersion                 = register(0x4286, ElementTypeUint, "EBMLVersion", 2)
	ElementEBMLReadVersion             = register(0x42f7, ElementTypeUint, "EBMLReadVersion", 2)
	ElementEBMLMaxIDLength             = register(0x42f2, ElementTypeUint, "EBMLMaxIDLength", 2)
	ElementEBMLMaxSizeLength           = register(0x42f3, ElementTypeUint, "EBMLMaxSizeLength", 2)
	ElementDocType                     = register(0x4282, ElementTypeString, "DocType", 2)
	ElementDocTypeVersion              = register(0x4287, ElementTypeUint, "DocTypeVersion", 2)
	ElementDocTypeReadVersion          = register(0x4285, ElementTypeUint, "DocTypeReadVersion", 2)
	ElementVoid                        = register(0xec, ElementTypeBinary, "Void", -1)
	ElementCRC32                       = register(0xbf, ElementTypeBinary, "CRC-32", -1)
	ElementSegment                     = register(0x18538067, ElementTypeMaster, "Segment", 0)
	ElementSeekHead                    = register(0x114d9b74, ElementTypeMaster, "SeekHead", 1)
	ElementSeek                        = register(0x4dbb, ElementTypeMaster, "Seek", 2)
	ElementSeekID                      = register(0x53ab, ElementTypeBinary, "SeekID", 3)
	ElementSeekPosition                = register(0x53ac, ElementTypeUint, "SeekPosition", 3)
	ElementInfo                        = register(0x1549a966, ElementTypeMaster, "Info", 1)
	ElementSegmentUID                  = register(0x73a4, ElementTypeBinary, "SegmentUID", 2)
	ElementSegmentFilename             = register(0x7384, ElementTypeUnicode, "SegmentFilename", 2)
	ElementPrevUID                     = register(0x3cb923, ElementTypeBinary, "PrevUID", 2)
	ElementPrevFilename                = register(0x3c83ab, ElementTypeUnicode, "PrevFilename", 2)
	ElementNextUID                     = register(0x3eb923, ElementTypeBinary, "NextUID", 2)
	ElementNextFilename                = register(0x3e83bb, ElementTypeUnicode, "NextFilename", 2)
	ElementSegmentFamily               = register(0x4444, ElementTypeBinary, "SegmentFamily", 2)
	ElementChapterTranslate            = register(0x6924, ElementTypeMaster, "ChapterTranslate", 2)
	ElementChapterTranslateEditionUID  = register(0x69fc, ElementTypeUint, "ChapterTranslateEditionUID", 3)
	ElementChapterTranslateCodec       = register(0x69bf, ElementTypeUint, "ChapterTranslateCodec", 3)
	ElementChapterTranslateID          = register(0x69a5, ElementTypeBinary, "ChapterTranslateID", 3)
	ElementTimecodeScale               = register(0x2ad7b1, ElementTypeUint, "TimecodeScale", 2)
	ElementDuration                    = register(0x4489, ElementTypeFloat, "Duration", 2)
	ElementDateUTC                     = register(0x4461, ElementTypeDate, "DateUTC", 2)
	ElementTitle                       = register(0x7ba9, ElementTypeUnicode, "Title", 2)
	ElementMuxingApp                   = register(0x4d80, ElementTypeUnicode, "MuxingApp", 2)
	ElementWritingApp                  = register(0x5741, ElementTypeUnicode, "WritingApp", 2)
	ElementCluster                     = register(0x1f43b675, ElementTypeMaster, "Cluster", 1)
	ElementTimecode                    = register(0xe7, ElementTypeUint, "Timecode", 2)
	ElementSilentTracks                = register(0x5854, ElementTypeMaster, "SilentTracks", 2)
	ElementSilentTrackNumber           = register(0x58d7, ElementTypeUint, "SilentTrackNumber", 3)
	ElementPosition                    = register(0xa7, ElementTypeUint, "Position", 2)
	ElementPrevSize                    = register(0xab, ElementTypeUint, "PrevSize", 2)
	ElementSimpleBlock                 = register(0xa3, ElementTypeBinary, "SimpleBlock", 2)
	ElementBlockGroup                  = register(0xa0, ElementTypeMaster, "BlockGroup", 2)
	ElementBlock                       = register(0xa1, ElementTypeBinary, "Block", 3)
	ElementBlockAdditions              = register(0x75a1, ElementTypeMaster, "BlockAdditions", 3)
	ElementBlockMore                   = register(0xa6, ElementTypeMaster, "BlockMore", 3)
	ElementBlockAddID                  = register(0xee, ElementTypeUint, "BlockAddID", 3)
	ElementBlockAdditional             = register(0xa5, ElementTypeBinary, "BlockAdditional", 3)
	ElementBlockDuration               = register(0x9b, ElementTypeUint, "BlockDuration", 3)
	ElementReferencePriority           = register(0xfa, ElementTypeUint, "ReferencePriority", 3)
	ElementReferenceBlock              = register(0xfb, ElementTypeInt, "ReferenceBlock", 3)
	ElementCodecState                  = register(0xa4, ElementTypeBinary, "CodecState", 3)
	ElementDiscardPadding              = register(0x75a2, ElementTypeInt, "DiscardPadding", 3)
	ElementSlices                      = register(0x8e, ElementTypeMaster, "Slices", 3)
	ElementTimeSlice                   = register(0xe8, ElementTypeMaster, "TimeSlice", 3)
	ElementLaceNumber                  = register(0xcc, ElementTypeUint, "LaceNumber", 3)
	ElementTracks                      = register(0x1654ae6b, ElementTypeMaster, "Tracks", 1)
	ElementTrackEntry                  = register(0xae, ElementTypeMaster, "TrackEntry", 2)
	ElementTrackNumber                 = register(0xd7, ElementTypeUint, "TrackNumber", 3)
	ElementTrackUID                    = register(0x73c5, ElementTypeUint, "TrackUID", 3)
	ElementTrackType                   = register(0x83, ElementTypeUint, "TrackType", 3)
	ElementFlagEnabled                 = register(0xb9, ElementTypeUint, "FlagEnabled", 3)
	ElementFlagDefault                 = register(0x88, ElementTypeUint, "FlagDefault", 3)
	ElementFlagForced                  = register(0x55aa, ElementTypeUint, "FlagForced", 3)
	ElementFlagLacing                  = register(0x9c, ElementTypeUint, "FlagLacing", 3)
	ElementMinCache                    = register(0x6de7, ElementTypeUint, "MinCache", 3)
	ElementMaxCache                    = register(0x6df8, ElementTypeUint, "MaxCache", 3)
	ElementDefaultDuration             = register(0x23e383, ElementTypeUint, "DefaultDuration", 3)
	ElementDefaultDecodedFieldDuration = register(0x234e7a, ElementTypeUint, "DefaultDecodedFieldDuration", 3)
	ElementMaxBlockAdditionID          = register(0x55ee, ElementTypeUint, "MaxBlockAdditionID", 3)
	ElementName                        = register(0x536e, ElementTypeUnicode, "Name", 3)
	ElementLanguage                    = register(0x22b59c, ElementTypeString, "Language", 3)
	ElementCodecID                     = register(0x86, ElementTypeString, "CodecID", 3)
	ElementCodecPrivate                = register(0x63a2, ElementTypeBinary, "CodecPrivate", 3)
	ElementCodecName                   = register(0x258688, ElementTypeUnicode, "CodecName", 3)
	ElementAttachmentLink              = register(0x7446, ElementTypeUint, "AttachmentLink", 3)
	ElementCodecDecodeAll              = register(0xaa, ElementTypeUint, "CodecDecodeAll", 3)
	ElementTrackOverlay                = register(0x6fab, ElementTypeUint, "TrackOverlay", 3)
	ElementCodecDelay                  = register(0x56aa, ElementTypeUint, "CodecDelay", 3)
	ElementSeekPreRoll                 = register(0x56bb, ElementTypeUint, "SeekPreRoll", 3)
	ElementTrackTranslate              = register(0x6624, ElementTypeMaster, "TrackTranslate", 3)
	ElementTrackTranslateEditionUID    = register(0x66fc, ElementTypeUint, "TrackTranslateEditionUID", 3)
	ElementTrackTranslateCodec         = register(0x66bf, ElementTypeUint, "TrackTranslateCodec", 3)
	ElementTrackTranslateTrackID       = register(0x66a5, ElementTypeBinary, "TrackTranslateTrackID", 3)
	ElementVideo                       = register(0xe0, ElementTypeMaster, "Video", 3)
	ElementFlagInterlaced              = register(0x9a, ElementTypeUint, "FlagInterlaced", 3)
	ElementStereoMode                  = register(0x53b8, ElementTypeUint, "StereoMode", 3)
	ElementAlphaMode                   = register(0x53c0, ElementTypeUint, "AlphaMode", 3)
	ElementPixelWidth                  = register(0xb0, ElementTypeUint, "PixelWidth", 3)
	ElementPixelHeight                 = register(0xba, ElementTypeUint, "PixelHeight", 3)
	ElementPixelCropBottom             = register(0x54aa, ElementTypeUint, "PixelCropBottom", 3)
	ElementPixelCropTop                = register(0x54bb, ElementTypeUint, "PixelCropTop", 3)
	ElementPixelCropLeft               = register(0x54cc, ElementTypeUint, "PixelCropLeft", 3)
	ElementPixelCropRight              = register(0x54dd, ElementTypeUint, "PixelCropRight", 3)
	ElementDisplayWidth                = register(0x54b0, ElementTypeUint, "DisplayWidth", 3)
	ElementDisplayHeight               = register(0x54ba, ElementTypeUint, "DisplayHeight", 3)
	ElementDisplayUint                 = register(0x54b2, ElementTypeUint, "DisplayUint", 3)
	ElementAspectRatioType             = register(0x54b3, ElementTypeUint, "AspectRatioType", 3)
	ElementColourSpace                 = register(0x2eb524, ElementTypeBinary, "ColourSpace", 3)
	ElementAudio                       = register(0xe1, ElementTypeMaster, "Audio", 3)
	ElementSamplingFrequency           = register(0xb5, ElementTypeFloat, "SamplingFrequency", 3)
	ElementOutputSamplingFrequency     = register(0x78b5, ElementTypeFloat, "OutputSamplingFrequency", 3)
	ElementChannels                    = register(0x9f, ElementTypeUint, "Channels", 3)
	ElementBitDepth                    = register(0x6264, ElementTypeUint, "BitDepth", 3)
	ElementTrackOperation              = register(0xe2, ElementTypeMaster, "TrackOperation", 3)
	ElementTrackCombinePlanes          = register(0xe3, ElementTypeMaster, "TrackCombinePlanes", 3)
	ElementTrackPlane                  = register(0xe4, ElementTypeMaster, "TrackPlane", 3)
	ElementTrackPlaneUID               = register(0xe5, ElementTypeUint, "TrackPlaneUID", 3)
	ElementTrackPlaneType              = register(0xe6, ElementTypeUint, "TrackPlaneType", 3)
	ElementTrackJoinBlocks             = register(0xe9, ElementTypeMaster, "TrackJoinBlocks", 3)
	ElementTrackJoinUID                = register(0xed, ElementTypeUint, "TrackJoinUID", 3)
	ElementContentEncodings            = register(0x6d80, ElementTypeMaster, "ContentEncodings", 3)
	ElementContentEncoding             = register(0x6240, ElementTypeMaster, "ContentEncoding", 3)
	ElementContentEncodingOrder        = register(0x5031, ElementTypeUint, "ContentEncodingOrder", 3)
	ElementContentEncodingScope        = register(0x5032, ElementTypeUint, "ContentEncodingScope", 3)
	ElementContentEncodingType         = register(0x5033, ElementTypeUint, "ContentEncodingType", 3)
	ElementContentCompression          = register(0x5034, ElementTypeMaster, "ContentCompression", 3)
	ElementContentCompAlgo             = register(0x4254, ElementTypeUint, "ContentCompAlgo", 3)
	ElementContentCompSettings         = register(0x4255, ElementTypeBinary, "ContentCompSettings", 3)
	ElementContentEncryption           = register(0x5035, ElementTypeMaster, "ContentEncryption", 3)
	ElementContentEncAlgo              = register(0x47e1, ElementTypeUint, "ContentEncAlgo", 3)
	ElementContentEncKeyID             = register(0x47e2, ElementTypeUint, "ContentEncKeyID", 3)
	ElementContentSignature            = register(0x47e3, ElementTypeBinary, "ContentSignature", 3)
	ElementContentSigKeyID             = register(0x47e4, ElementTypeBinary, "ContentSigKeyID", 3)
	ElementContentSigAlgo              = register(0x47e5, ElementTypeUint, "ContentSigAlgo", 3)
	ElementContentSigHashAlgo          = register(0x47e6, ElementTypeUint, "ContentSigHashAlgo", 3)
	ElementCues                        = register(0x1c53bb6b, ElementTypeMaster, "Cues", 1)
	ElementCuePoint                    = register(0xbb, ElementTypeMaster, "CuePoint", 2)
	ElementCueTime                     = register(0xb3, ElementTypeUint, "CueTime", 3)
	ElementCueTrackPositions           = register(0xb7, ElementTypeMaster, "CueTrackPositions", 3)
	ElementCueTrack                    = register(0xf7, ElementTypeUint, "CueTrack", 3)
	ElementCueClusterPosition          = register(0xf1, ElementTypeUint, "CueClusterPosition", 3)
	ElementCueRelativePosition         = register(0xf0, ElementTypeUint, "CueRelativePosition", 3)
	ElementCueDuration                 = register(0xb2, ElementTypeUint, "CueDuration", 3)
	ElementCueBlockNumber              = register(0x5378, ElementTypeUint, "CueBlockNumber", 3)
	ElementCueCodecState               = register(0xea, ElementTypeUint, "CueCodecState", 3)
	ElementCueReference                = register(0xdb, ElementTypeMaster, "CueReference", 3)
	ElementCueRefTime                  = register(0x96, ElementTypeUint, "CueRefTime", 3)
	ElementAttachments                 = register(0x1941a469, ElementTypeMaster, "Attachments", 1)
	ElementAttachedFile                = register(0x61a7, ElementTypeMaster, "AttachedFile", 2)
	ElementFileDescription             = register(0x467e, ElementTypeUnicode, "FileDescription", 3)
	ElementFileName                    = register(0x466e, ElementTypeUnicode, "FileName", 3)
	ElementFileMimeType                = register(0x6460, ElementTypeString, "FileMimeType", 3)
	ElementFileData                    = register(0x465c, ElementTypeBinary, "FileData", 3)
	ElementFileUID                     = register(0x46ae, ElementTypeUint, "FileUID", 3)
	ElementChapters                    = register(0x1043a770, ElementTypeMaster, "Chapters", 1)
	ElementEditionEntry                = register(0x45b9, ElementTypeMaster, "EditionEntry", 2)
	ElementEditionUID                  = register(0x45bc, ElementTypeUint, "EditionUID", 3)
	ElementEditionFlagHidden           = register(0x45bd, ElementTypeUint, "EditionFlagHidden", 3)
	ElementEditionFlagDefault          = register(0x45db, ElementTypeUint, "EditionFlagDefault", 3)
	ElementEditionFlagOrdered          = register(0x45dd, ElementTypeUint, "EditionFlagOrdered", 3)
	ElementChapterAtom                 = register(0xb6, ElementTypeMaster, "ChapterAtom", 3)
	ElementChapterUID                  = register(0x73c4, ElementTypeUint, "ChapterUID", 3)
	ElementChapterStringUID            = register(0x5654, ElementTypeUnicode, "ChapterStringUID", 3)
	ElementChapterTimeStart            = register(0x91, ElementTypeUint, "ChapterTimeStart", 3)
	ElementChapterTimeEnd              = register(0x92, ElementTypeUint, "ChapterTimeEnd", 3)
	ElementChapterFlagHidden           = register(0x98, ElementTypeUint, "ChapterFlagHidden", 3)
	ElementChapterFlagEnabled          = register(0x4598, ElementTypeUint, "ChapterFlagEnabled", 3)
	ElementChapterSegmentUID           = register(0x6e67, ElementTypeBinary, "ChapterSegmentUID", 3)
	ElementChapterSegmentEditionUID    = register(0x6ebc, ElementTypeUint, "ChapterSegmentEditionUID", 3)
	ElementChapterPhysicalEquiv        = register(0x63c3, ElementTypeUint, "ChapterPhysicalEquiv", 3)
	ElementChapterTrack                = register(0x8f, ElementTypeMaster, "ChapterTrack", 3)
	ElementChapterTrackNumber          = register(0x89, ElementTypeUint, "ChapterTrackNumber", 3)
	ElementChapterDisplay              = register(0x80, ElementTypeMaster, "ChapterDisplay", 3)
	ElementChapString                  = register(0x85, ElementTypeUnicode, "ChapString", 3)
	ElementChapLanguage                = register(0x437c, ElementTypeString, "ChapLanguage", 3)
	ElementChapCountry                 = register(0x437e, ElementTypeString, "ChapCountry", 3)
	ElementChapProcess                 = register(0x6944, ElementTypeMaster, "ChapProcess", 3)
	ElementChapProcessCodecID          = register(0x6955, ElementTypeUint, "ChapProcessCodecID", 3)
	ElementChapProcessPrivate          = register(0x450d, ElementTypeBinary, "ChapProcessPrivate", 3)
	ElementChapProcessCommand          = register(0x6911, ElementTypeMaster, "ChapProcessCommand", 3)
	ElementChapProcessTime             = register(0x6922, ElementTypeUint, "ChapProcessTime", 3)
	ElementChapProcessData             = register(0x6933, ElementTypeBinary, "ChapProcessData", 3)
	ElementTags                        = register(0x1254c367, ElementTypeMaster, "Tags", 1)
	ElementTag                         = register(0x7373, ElementTypeMaster, "Tag", 2)
	ElementTargets                     = register(0x63c0, ElementTypeMaster, "Targets", 3)
	ElementTargetTypeValue             = register(0x68ca, ElementTypeUint, "TargetTypeValue", 3)
	ElementTargetType                  = register(0x63ca, ElementTypeString, "TargetType", 3)
	ElementTagTrackUID                 = register(0x63c5, ElementTypeUint, "TagTrackUID", 3)
	ElementTagEditionUID               = register(0x63c9, ElementTypeUint, "TagEditionUID", 3)
	ElementTagChapterUID               = register(0x63c4, ElementTypeUint, "TagChapterUID", 3)
	ElementSimpleTag                   = register(0x67c8, ElementTypeMaster, "SimpleTag", 3)
	ElementTagName                     = register(0x45a3, ElementTypeUnicode, "TagName", 3)
	ElementTagLanguage                 = register(0x447a, ElementTypeString, "TagLanguage", 3)
	ElementTagDefault                  = register(0x4484, ElementTypeUint, "TagDefault", 3)
	ElementTagString                   = register(0x4487, ElementTypeUnicode, "TagString", 3)
	ElementTagBinary                   = register(0x4485, ElementTypeBinary, "TagBinary", 3)
)

// GetElementRegister returns the register of a known element id. Unknown ids
// come back with ElementTypeUnknown and a LevelGlobal depth so callers can skip
// them without closing an unknown-size parent.
func GetElementRegister(id uint32) ElementRegister {
	if reg, ok := registry[id]; ok {
		return reg
	}
	return ElementRegister{ID: id, Type: ElementTypeUnknown, Name: "Unknown", Level: LevelGlobal}
}

// IsTopLevel reports whether id is a direct child of Segment.
func IsTopLevel(id uint32) bool {
	return GetElementRegister(id).Level == 1
}
