package spe

import (
	"fmt"
	"strconv"
)

const (
	// HeaderSize is the size of the WINX header; frame data starts here.
	HeaderSize = 4100

	ROICount        = 10
	ROIOffset       = 1512
	ROISize         = 12
	CalibrationSize = 489

	XCalibrationOffset = 3000
	YCalibrationOffset = 3489

	// WinViewID is the WinView_id value written by WinX software.
	WinViewID = 0x01234567
)

// ROI is one region of interest entry (ROIinfoblk).
type ROI struct {
	StartX uint16 // left x start value
	EndX   uint16 // right x value
	GroupX uint16 // amount x is binned/grouped in hw
	StartY uint16 // top y start value
	EndY   uint16 // bottom y value
	GroupY uint16 // amount y is binned/grouped in hw
}

// Calibration is one axis calibration structure.
type Calibration struct {
	Offset        float64     // offset for absolute data scaling
	Factor        float64     // factor for absolute data scaling
	CurrentUnit   uint8       // selected scaling unit
	Reserved1     uint8       // reserved
	String        [40]byte    // special string for scaling
	Reserved2     [40]byte    // reserved
	CalibValid    uint8       // flag if calibration is valid
	InputUnit     uint8       // current input units for CalibValue
	PolynomUnit   uint8       // linear unit used in PolynomCoeff
	PolynomOrder  uint8       // order of calibration polynom
	CalibCount    uint8       // valid calibration data pairs
	PixelPosition [10]float64 // pixel pos. of calibration data
	CalibValue    [10]float64 // calibration value at above pos
	PolynomCoeff  [6]float64  // polynom coefficients
	LaserPosition float64     // laser wavenumber for relative WN
	Reserved3     uint8       // reserved
	NewCalibFlag  uint8       // if set to 200, valid label below
	CalibLabel    [81]byte    // calibration label (NUL terminated)
	Expansion     [87]byte    // calibration expansion area
}

// Header is the decoded 4100-byte WinView/WinSpec file header. Values are
// decoded verbatim; only XDim, YDim, NumFrames and DataType drive frame
// extraction. A decoded Header must be treated as read-only.
type Header struct {
	ControllerVersion    int16    // hardware version
	LogicOutput          int16    // definition of output BNC
	AmpHiCapLowNoise     uint16   // amp switching mode
	XDimDet              uint16   // detector x dimension of chip
	Mode                 int16    // timing mode
	ExpSec               float32  // alternative exposure, in sec
	VChipXdim            int16    // virtual chip x dim
	VChipYdim            int16    // virtual chip y dim
	YDimDet              uint16   // y dimension of CCD or detector
	Date                 [10]byte // ddmmmyyyy
	VirtualChipFlag      int16
	Spare1               [2]byte
	NoScan               int16 // old number of scans, should always be -1
	DetTemperature       float32
	DetType              int16
	XDim                 uint16 // actual # of pixels on x axis
	StDiode              int16  // trigger diode
	DelayTime            float32
	ShutterControl       uint16
	AbsorbLive           int16
	AbsorbMode           uint16
	CanDoVirtualChipFlag int16
	ThresholdMinLive     int16
	ThresholdMinVal      float32
	ThresholdMaxLive     int16
	ThresholdMaxVal      float32
	SpecAutoSpectroMode  int16
	SpecCenterWlNm       float32
	SpecGlueFlag         int16
	SpecGlueStartWlNm    float32
	SpecGlueEndWlNm      float32
	SpecGlueMinOvrlpNm   float32
	SpecGlueFinalResNm   float32
	PulserType           int16 // 0=None, PG200=1, PTG=2, DG535=3
	CustomChipFlag       int16
	XPrePixels           int16
	XPostPixels          int16
	YPrePixels           int16
	YPostPixels          int16
	Asynen               int16
	DataType             DataType // experiment datatype
	PulserMode           int16
	PulserOnChipAccums   uint16
	PulserRepeatExp      uint32
	PulseRepWidth        float32
	PulseRepDelay        float32
	PulseSeqStartWidth   float32
	PulseSeqEndWidth     float32
	PulseSeqStartDelay   float32
	PulseSeqEndDelay     float32
	PulseSeqIncMode      int16
	PImaxUsed            int16
	PImaxMode            int16
	PImaxGain            int16
	BackGrndApplied      int16
	PImax2nsBrdUsed      int16
	MinBlk               uint16
	NumMinBlk            uint16
	SpecMirrorLocation   [2]int16
	SpecSlitLocation     [4]int16
	CustomTimingFlag     int16
	ExperimentTimeLocal  [7]byte // hhmmss\0
	ExperimentTimeUTC    [7]byte // hhmmss\0
	ExposUnits           int16
	ADCOffset            uint16
	ADCRate              uint16
	ADCType              uint16
	ADCResolution        uint16
	ADCBitAdjust         uint16
	Gain                 uint16
	Comments             [5][80]byte
	Geometric            uint16 // rotate 0x01, reverse 0x02, flip 0x04
	XLabel               [16]byte
	Cleans               uint16
	NumSkpPerCln         uint16
	SpecMirrorPos        [2]int16
	SpecSlitPos          [4]float32
	AutoCleansActive     int16
	UseContCleansInst    int16
	AbsorbStripNum       int16
	SpecSlitPosUnits     int16
	SpecGrooves          float32
	SrcCmp               int16
	YDim                 uint16 // y dimension of raw data
	Scramble             int16
	ContinuousCleansFlag int16
	ExternalTriggerFlag  int16
	LNoScan              int32 // number of scans (early WinX)
	LAvgExp              int32 // number of accumulations
	ReadoutTime          float32
	TriggeredModeFlag    int16
	Spare2               [10]byte
	SWVersion            [16]byte
	Type                 int16 // controller type, 1=new120 .. 12=OMA4
	FlatFieldApplied     int16
	Spare3               [16]byte
	KinTrigMode          int16
	DLabel               [16]byte
	Spare4               [436]byte
	PulseFileName        [120]byte
	AbsorbFileName       [120]byte
	NumExpRepeats        uint32
	NumExpAccums         uint32
	YTFlag               int16
	ClkSpdUs             float32
	HWAccumFlag          int16
	StoreSync            int16
	BlemishApplied       int16
	CosmicApplied        int16
	CosmicType           int16
	CosmicThreshold      float32
	NumFrames            int32 // number of frames in file
	MaxIntensity         float32
	MinIntensity         float32
	YLabel               [16]byte
	ShutterType          uint16
	ShutterComp          float32
	ReadoutMode          uint16
	WindowSize           uint16
	ClkSpd               uint16
	InterfaceType        uint16
	NumROIsInExperiment  int16
	Spare5               [16]byte
	ControllerNum        uint16
	SWMade               uint16
	NumROI               int16
	ROI                  [ROICount]ROI
	FlatField            [120]byte
	Background           [120]byte
	Blemish              [120]byte
	FileHeaderVer        float32
	YTInfo               [1000]byte
	WinViewID            int32
	XCalibration         Calibration
	YCalibration         Calibration
	IString              [40]byte
	Spare6               [25]byte
	SpecType             uint8
	SpecModel            uint8
	PulseBurstUsed       uint8
	PulseBurstCount      uint32
	PulseBurstPeriod     float64
	PulseBracketUsed     uint8
	PulseBracketType     uint8
	PulseTimeConstFast   float64
	PulseAmplitudeFast   float64
	PulseTimeConstSlow   float64
	PulseAmplitudeSlow   float64
	AnalogGain           int16
	AvGainUsed           int16
	AvGain               int16
	LastValue            int16
}

var roiFields = []field[ROI]{
	{"startx", 0, 2, func(r *ROI) any { return &r.StartX }},
	{"endx", 2, 2, func(r *ROI) any { return &r.EndX }},
	{"groupx", 4, 2, func(r *ROI) any { return &r.GroupX }},
	{"starty", 6, 2, func(r *ROI) any { return &r.StartY }},
	{"endy", 8, 2, func(r *ROI) any { return &r.EndY }},
	{"groupy", 10, 2, func(r *ROI) any { return &r.GroupY }},
}

var calibrationFields = []field[Calibration]{
	{"offset", 0, 8, func(c *Calibration) any { return &c.Offset }},
	{"factor", 8, 8, func(c *Calibration) any { return &c.Factor }},
	{"current_unit", 16, 1, func(c *Calibration) any { return &c.CurrentUnit }},
	{"reserved1", 17, 1, func(c *Calibration) any { return &c.Reserved1 }},
	{"string", 18, 40, func(c *Calibration) any { return &c.String }},
	{"reserved2", 58, 40, func(c *Calibration) any { return &c.Reserved2 }},
	{"calib_valid", 98, 1, func(c *Calibration) any { return &c.CalibValid }},
	{"input_unit", 99, 1, func(c *Calibration) any { return &c.InputUnit }},
	{"polynom_unit", 100, 1, func(c *Calibration) any { return &c.PolynomUnit }},
	{"polynom_order", 101, 1, func(c *Calibration) any { return &c.PolynomOrder }},
	{"calib_count", 102, 1, func(c *Calibration) any { return &c.CalibCount }},
	{"pixel_position", 103, 80, func(c *Calibration) any { return &c.PixelPosition }},
	{"calib_value", 183, 80, func(c *Calibration) any { return &c.CalibValue }},
	{"polynom_coeff", 263, 48, func(c *Calibration) any { return &c.PolynomCoeff }},
	{"laser_position", 311, 8, func(c *Calibration) any { return &c.LaserPosition }},
	{"reserved3", 319, 1, func(c *Calibration) any { return &c.Reserved3 }},
	{"new_calib_flag", 320, 1, func(c *Calibration) any { return &c.NewCalibFlag }},
	{"calib_label", 321, 81, func(c *Calibration) any { return &c.CalibLabel }},
	{"expansion", 402, 87, func(c *Calibration) any { return &c.Expansion }},
}

// Fields before the ROI block.
var headerFieldsPre = []field[Header]{
	{"ControllerVersion", 0, 2, func(h *Header) any { return &h.ControllerVersion }},
	{"LogicOutput", 2, 2, func(h *Header) any { return &h.LogicOutput }},
	{"AmpHiCapLowNoise", 4, 2, func(h *Header) any { return &h.AmpHiCapLowNoise }},
	{"xDimDet", 6, 2, func(h *Header) any { return &h.XDimDet }},
	{"mode", 8, 2, func(h *Header) any { return &h.Mode }},
	{"exp_sec", 10, 4, func(h *Header) any { return &h.ExpSec }},
	{"VChipXdim", 14, 2, func(h *Header) any { return &h.VChipXdim }},
	{"VChipYdim", 16, 2, func(h *Header) any { return &h.VChipYdim }},
	{"yDimDet", 18, 2, func(h *Header) any { return &h.YDimDet }},
	{"date", 20, 10, func(h *Header) any { return &h.Date }},
	{"VirtualChipFlag", 30, 2, func(h *Header) any { return &h.VirtualChipFlag }},
	{"Spare_1", 32, 2, func(h *Header) any { return &h.Spare1 }},
	{"noscan", 34, 2, func(h *Header) any { return &h.NoScan }},
	{"DetTemperature", 36, 4, func(h *Header) any { return &h.DetTemperature }},
	{"DetType", 40, 2, func(h *Header) any { return &h.DetType }},
	{"xdim", 42, 2, func(h *Header) any { return &h.XDim }},
	{"stdiode", 44, 2, func(h *Header) any { return &h.StDiode }},
	{"DelayTime", 46, 4, func(h *Header) any { return &h.DelayTime }},
	{"ShutterControl", 50, 2, func(h *Header) any { return &h.ShutterControl }},
	{"AbsorbLive", 52, 2, func(h *Header) any { return &h.AbsorbLive }},
	{"AbsorbMode", 54, 2, func(h *Header) any { return &h.AbsorbMode }},
	{"CanDoVirtualChipFlag", 56, 2, func(h *Header) any { return &h.CanDoVirtualChipFlag }},
	{"ThresholdMinLive", 58, 2, func(h *Header) any { return &h.ThresholdMinLive }},
	{"ThresholdMinVal", 60, 4, func(h *Header) any { return &h.ThresholdMinVal }},
	{"ThresholdMaxLive", 64, 2, func(h *Header) any { return &h.ThresholdMaxLive }},
	{"ThresholdMaxVal", 66, 4, func(h *Header) any { return &h.ThresholdMaxVal }},
	{"SpecAutoSpectroMode", 70, 2, func(h *Header) any { return &h.SpecAutoSpectroMode }},
	{"SpecCenterWlNm", 72, 4, func(h *Header) any { return &h.SpecCenterWlNm }},
	{"SpecGlueFlag", 76, 2, func(h *Header) any { return &h.SpecGlueFlag }},
	{"SpecGlueStartWlNm", 78, 4, func(h *Header) any { return &h.SpecGlueStartWlNm }},
	{"SpecGlueEndWlNm", 82, 4, func(h *Header) any { return &h.SpecGlueEndWlNm }},
	{"SpecGlueMinOvrlpNm", 86, 4, func(h *Header) any { return &h.SpecGlueMinOvrlpNm }},
	{"SpecGlueFinalResNm", 90, 4, func(h *Header) any { return &h.SpecGlueFinalResNm }},
	{"PulserType", 94, 2, func(h *Header) any { return &h.PulserType }},
	{"CustomChipFlag", 96, 2, func(h *Header) any { return &h.CustomChipFlag }},
	{"XPrePixels", 98, 2, func(h *Header) any { return &h.XPrePixels }},
	{"XPostPixels", 100, 2, func(h *Header) any { return &h.XPostPixels }},
	{"YPrePixels", 102, 2, func(h *Header) any { return &h.YPrePixels }},
	{"YPostPixels", 104, 2, func(h *Header) any { return &h.YPostPixels }},
	{"asynen", 106, 2, func(h *Header) any { return &h.Asynen }},
	{"datatype", 108, 2, func(h *Header) any { return &h.DataType }},
	{"PulserMode", 110, 2, func(h *Header) any { return &h.PulserMode }},
	{"PulserOnChipAccums", 112, 2, func(h *Header) any { return &h.PulserOnChipAccums }},
	{"PulserRepeatExp", 114, 4, func(h *Header) any { return &h.PulserRepeatExp }},
	{"PulseRepWidth", 118, 4, func(h *Header) any { return &h.PulseRepWidth }},
	{"PulseRepDelay", 122, 4, func(h *Header) any { return &h.PulseRepDelay }},
	{"PulseSeqStartWidth", 126, 4, func(h *Header) any { return &h.PulseSeqStartWidth }},
	{"PulseSeqEndWidth", 130, 4, func(h *Header) any { return &h.PulseSeqEndWidth }},
	{"PulseSeqStartDelay", 134, 4, func(h *Header) any { return &h.PulseSeqStartDelay }},
	{"PulseSeqEndDelay", 138, 4, func(h *Header) any { return &h.PulseSeqEndDelay }},
	{"PulseSeqIncMode", 142, 2, func(h *Header) any { return &h.PulseSeqIncMode }},
	{"PImaxUsed", 144, 2, func(h *Header) any { return &h.PImaxUsed }},
	{"PImaxMode", 146, 2, func(h *Header) any { return &h.PImaxMode }},
	{"PImaxGain", 148, 2, func(h *Header) any { return &h.PImaxGain }},
	{"BackGrndApplied", 150, 2, func(h *Header) any { return &h.BackGrndApplied }},
	{"PImax2nsBrdUsed", 152, 2, func(h *Header) any { return &h.PImax2nsBrdUsed }},
	{"minblk", 154, 2, func(h *Header) any { return &h.MinBlk }},
	{"numminblk", 156, 2, func(h *Header) any { return &h.NumMinBlk }},
	{"SpecMirrorLocation", 158, 4, func(h *Header) any { return &h.SpecMirrorLocation }},
	{"SpecSlitLocation", 162, 8, func(h *Header) any { return &h.SpecSlitLocation }},
	{"CustomTimingFlag", 170, 2, func(h *Header) any { return &h.CustomTimingFlag }},
	{"ExperimentTimeLocal", 172, 7, func(h *Header) any { return &h.ExperimentTimeLocal }},
	{"ExperimentTimeUTC", 179, 7, func(h *Header) any { return &h.ExperimentTimeUTC }},
	{"ExposUnits", 186, 2, func(h *Header) any { return &h.ExposUnits }},
	{"ADCoffset", 188, 2, func(h *Header) any { return &h.ADCOffset }},
	{"ADCrate", 190, 2, func(h *Header) any { return &h.ADCRate }},
	{"ADCtype", 192, 2, func(h *Header) any { return &h.ADCType }},
	{"ADCresolution", 194, 2, func(h *Header) any { return &h.ADCResolution }},
	{"ADCbitAdjust", 196, 2, func(h *Header) any { return &h.ADCBitAdjust }},
	{"gain", 198, 2, func(h *Header) any { return &h.Gain }},
	{"Comments", 200, 400, func(h *Header) any { return &h.Comments }},
	{"geometric", 600, 2, func(h *Header) any { return &h.Geometric }},
	{"xlabel", 602, 16, func(h *Header) any { return &h.XLabel }},
	{"cleans", 618, 2, func(h *Header) any { return &h.Cleans }},
	{"NumSkpPerCln", 620, 2, func(h *Header) any { return &h.NumSkpPerCln }},
	{"SpecMirrorPos", 622, 4, func(h *Header) any { return &h.SpecMirrorPos }},
	{"SpecSlitPos", 626, 16, func(h *Header) any { return &h.SpecSlitPos }},
	{"AutoCleansActive", 642, 2, func(h *Header) any { return &h.AutoCleansActive }},
	{"UseContCleansInst", 644, 2, func(h *Header) any { return &h.UseContCleansInst }},
	{"AbsorbStripNum", 646, 2, func(h *Header) any { return &h.AbsorbStripNum }},
	{"SpecSlitPosUnits", 648, 2, func(h *Header) any { return &h.SpecSlitPosUnits }},
	{"SpecGrooves", 650, 4, func(h *Header) any { return &h.SpecGrooves }},
	{"srccmp", 654, 2, func(h *Header) any { return &h.SrcCmp }},
	{"ydim", 656, 2, func(h *Header) any { return &h.YDim }},
	{"scramble", 658, 2, func(h *Header) any { return &h.Scramble }},
	{"ContinuousCleansFlag", 660, 2, func(h *Header) any { return &h.ContinuousCleansFlag }},
	{"ExternalTriggerFlag", 662, 2, func(h *Header) any { return &h.ExternalTriggerFlag }},
	{"lnoscan", 664, 4, func(h *Header) any { return &h.LNoScan }},
	{"lavgexp", 668, 4, func(h *Header) any { return &h.LAvgExp }},
	{"ReadoutTime", 672, 4, func(h *Header) any { return &h.ReadoutTime }},
	{"TriggeredModeFlag", 676, 2, func(h *Header) any { return &h.TriggeredModeFlag }},
	{"Spare_2", 678, 10, func(h *Header) any { return &h.Spare2 }},
	{"sw_version", 688, 16, func(h *Header) any { return &h.SWVersion }},
	{"type", 704, 2, func(h *Header) any { return &h.Type }},
	{"flatFieldApplied", 706, 2, func(h *Header) any { return &h.FlatFieldApplied }},
	{"Spare_3", 708, 16, func(h *Header) any { return &h.Spare3 }},
	{"kin_trig_mode", 724, 2, func(h *Header) any { return &h.KinTrigMode }},
	{"dlabel", 726, 16, func(h *Header) any { return &h.DLabel }},
	{"Spare_4", 742, 436, func(h *Header) any { return &h.Spare4 }},
	{"PulseFileName", 1178, 120, func(h *Header) any { return &h.PulseFileName }},
	{"AbsorbFileName", 1298, 120, func(h *Header) any { return &h.AbsorbFileName }},
	{"NumExpRepeats", 1418, 4, func(h *Header) any { return &h.NumExpRepeats }},
	{"NumExpAccums", 1422, 4, func(h *Header) any { return &h.NumExpAccums }},
	{"YT_Flag", 1426, 2, func(h *Header) any { return &h.YTFlag }},
	{"clkspd_us", 1428, 4, func(h *Header) any { return &h.ClkSpdUs }},
	{"HWaccumFlag", 1432, 2, func(h *Header) any { return &h.HWAccumFlag }},
	{"StoreSync", 1434, 2, func(h *Header) any { return &h.StoreSync }},
	{"BlemishApplied", 1436, 2, func(h *Header) any { return &h.BlemishApplied }},
	{"CosmicApplied", 1438, 2, func(h *Header) any { return &h.CosmicApplied }},
	{"CosmicType", 1440, 2, func(h *Header) any { return &h.CosmicType }},
	{"CosmicThreshold", 1442, 4, func(h *Header) any { return &h.CosmicThreshold }},
	{"NumFrames", 1446, 4, func(h *Header) any { return &h.NumFrames }},
	{"MaxIntensity", 1450, 4, func(h *Header) any { return &h.MaxIntensity }},
	{"MinIntensity", 1454, 4, func(h *Header) any { return &h.MinIntensity }},
	{"ylabel", 1458, 16, func(h *Header) any { return &h.YLabel }},
	{"ShutterType", 1474, 2, func(h *Header) any { return &h.ShutterType }},
	{"shutterComp", 1476, 4, func(h *Header) any { return &h.ShutterComp }},
	{"readoutMode", 1480, 2, func(h *Header) any { return &h.ReadoutMode }},
	{"WindowSize", 1482, 2, func(h *Header) any { return &h.WindowSize }},
	{"clkspd", 1484, 2, func(h *Header) any { return &h.ClkSpd }},
	{"interface_type", 1486, 2, func(h *Header) any { return &h.InterfaceType }},
	{"NumROIsInExperiment", 1488, 2, func(h *Header) any { return &h.NumROIsInExperiment }},
	{"Spare_5", 1490, 16, func(h *Header) any { return &h.Spare5 }},
	{"controllerNum", 1506, 2, func(h *Header) any { return &h.ControllerNum }},
	{"SWmade", 1508, 2, func(h *Header) any { return &h.SWMade }},
	{"NumROI", 1510, 2, func(h *Header) any { return &h.NumROI }},
}

// Fields between the ROI block and the calibration structures.
var headerFieldsMid = []field[Header]{
	{"FlatField", 1632, 120, func(h *Header) any { return &h.FlatField }},
	{"background", 1752, 120, func(h *Header) any { return &h.Background }},
	{"blemish", 1872, 120, func(h *Header) any { return &h.Blemish }},
	{"file_header_ver", 1992, 4, func(h *Header) any { return &h.FileHeaderVer }},
	{"YT_Info", 1996, 1000, func(h *Header) any { return &h.YTInfo }},
	{"WinView_id", 2996, 4, func(h *Header) any { return &h.WinViewID }},
}

// Fields after the Y calibration structure.
var headerFieldsPost = []field[Header]{
	{"Istring", 3978, 40, func(h *Header) any { return &h.IString }},
	{"Spare_6", 4018, 25, func(h *Header) any { return &h.Spare6 }},
	{"SpecType", 4043, 1, func(h *Header) any { return &h.SpecType }},
	{"SpecModel", 4044, 1, func(h *Header) any { return &h.SpecModel }},
	{"PulseBurstUsed", 4045, 1, func(h *Header) any { return &h.PulseBurstUsed }},
	{"PulseBurstCount", 4046, 4, func(h *Header) any { return &h.PulseBurstCount }},
	{"PulseBurstPeriod", 4050, 8, func(h *Header) any { return &h.PulseBurstPeriod }},
	{"PulseBracketUsed", 4058, 1, func(h *Header) any { return &h.PulseBracketUsed }},
	{"PulseBracketType", 4059, 1, func(h *Header) any { return &h.PulseBracketType }},
	{"PulseTimeConstFast", 4060, 8, func(h *Header) any { return &h.PulseTimeConstFast }},
	{"PulseAmplitudeFast", 4068, 8, func(h *Header) any { return &h.PulseAmplitudeFast }},
	{"PulseTimeConstSlow", 4076, 8, func(h *Header) any { return &h.PulseTimeConstSlow }},
	{"PulseAmplitudeSlow", 4084, 8, func(h *Header) any { return &h.PulseAmplitudeSlow }},
	{"AnalogGain", 4092, 2, func(h *Header) any { return &h.AnalogGain }},
	{"AvGainUsed", 4094, 2, func(h *Header) any { return &h.AvGainUsed }},
	{"AvGain", 4096, 2, func(h *Header) any { return &h.AvGain }},
	{"lastvalue", 4098, 2, func(h *Header) any { return &h.LastValue }},
}

// headerFields is the flattened layout in offset order, sub-records included.
var headerFields = buildHeaderFields()

var headerFieldIndex = func() map[string]int {
	m := make(map[string]int, len(headerFields))
	for i, f := range headerFields {
		m[f.name] = i
	}
	return m
}()

func buildHeaderFields() []field[Header] {
	fields := append([]field[Header]{}, headerFieldsPre...)
	for i := 0; i < ROICount; i++ {
		i := i
		fields = append(fields, nest(roiName(i), ROIOffset+i*ROISize, roiFields,
			func(h *Header) *ROI { return &h.ROI[i] })...)
	}
	fields = append(fields, headerFieldsMid...)
	fields = append(fields, nest("XCal", XCalibrationOffset, calibrationFields,
		func(h *Header) *Calibration { return &h.XCalibration })...)
	fields = append(fields, nest("YCal", YCalibrationOffset, calibrationFields,
		func(h *Header) *Calibration { return &h.YCalibration })...)
	return append(fields, headerFieldsPost...)
}

func roiName(i int) string {
	return "ROIinfoblk[" + strconv.Itoa(i) + "]"
}

// Fields lists every header value in offset order.
func Fields() []FieldInfo {
	out := make([]FieldInfo, len(headerFields))
	for i, f := range headerFields {
		out[i] = FieldInfo{Name: f.name, Offset: f.offset, Size: f.size}
	}
	return out
}

// Field returns the decoded value of the named header field. Sub-record
// values are addressed as "ROIinfoblk[3].endx" or "YCal.polynom_coeff".
func (h *Header) Field(name string) (any, error) {
	i, ok := headerFieldIndex[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return value(headerFields[i].ref(h)), nil
}
