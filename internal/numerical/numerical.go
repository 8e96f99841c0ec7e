package numerical

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Transforms accepted by Transform and Decimate.
var Transforms = []string{"mean", "max", "min", "absmax", "first"}

// ErrBadRequest is wrapped by every argument error of this package.
var ErrBadRequest = errors.New("bad decimation request")

func SuppressNaN(num float64) float64 {
	if math.IsNaN(num) {
		return 0
	}
	return num
}

func ValidTransform(transform string) bool {
	for _, t := range Transforms {
		if t == transform {
			return true
		}
	}
	return false
}

func Transform(dataIn []float64, transform string) float64 {
	if len(dataIn) == 0 {
		return 0
	}
	switch transform {
	case "mean":
		return SuppressNaN(stat.Mean(dataIn, nil))
	case "max":
		return SuppressNaN(floats.Max(dataIn))
	case "min":
		return SuppressNaN(floats.Min(dataIn))
	case "absmax":
		return SuppressNaN(floats.Norm(dataIn, math.Inf(1)))
	case "first":
		return SuppressNaN(dataIn[0])
	default:
		return 0
	}
}

// DownSampleLineInX reduces (or stretches) datain to outxsize values and
// writes them to line outLineNum of outData.
func DownSampleLineInX(datain []float64, outxsize int, transform string, outData []float64, outLineNum int) {
	xelementsperoutput := float64(len(datain)) / float64(outxsize)
	if xelementsperoutput > 1 {
		xElementsPerOutputCeil := int(math.Ceil(xelementsperoutput))
		for x := 0; x < outxsize; x++ {
			var startelement int
			var endelement int
			if x != (outxsize - 1) {
				startelement = int(math.Round(float64(x) * xelementsperoutput))
				endelement = min(startelement+xElementsPerOutputCeil, len(datain))
			} else {
				endelement = len(datain)
				startelement = endelement - xElementsPerOutputCeil
			}
			outData[outLineNum*outxsize+x] = Transform(datain[startelement:endelement], transform)
		}
	} else { // Expand Data by repeating input values into output
		for x := 0; x < outxsize; x++ {
			index := int(math.Floor(float64(x) * xelementsperoutput))
			outData[outLineNum*outxsize+x] = datain[index]
		}
	}
}

// DownSampleLineInY collapses the lines of datain, each outxsize wide, into
// one line.
func DownSampleLineInY(datain []float64, outxsize int, transform string) []float64 {
	numLines := len(datain) / outxsize
	processSlice := make([]float64, numLines)
	outData := make([]float64, outxsize)
	for x := 0; x < outxsize; x++ {
		for y := 0; y < numLines; y++ {
			processSlice[y] = datain[y*outxsize+x]
		}
		outData[x] = Transform(processSlice, transform)
	}
	return outData
}

// Decimate resamples a rows x cols frame, stored row-major, to
// outysize x outxsize. Each output line reduces a band of input lines first
// in x and then in y.
func Decimate(frame []float64, rows, cols, outxsize, outysize int, transform string) ([]float64, error) {
	if rows <= 0 || cols <= 0 || len(frame) != rows*cols {
		return nil, fmt.Errorf("%w: frame of %d values is not %dx%d", ErrBadRequest, len(frame), rows, cols)
	}
	if outxsize <= 0 || outysize <= 0 {
		return nil, fmt.Errorf("%w: output size %dx%d", ErrBadRequest, outxsize, outysize)
	}
	if !ValidTransform(transform) {
		return nil, fmt.Errorf("%w: unknown transform %q", ErrBadRequest, transform)
	}

	processedData := make([]float64, 0, outxsize*outysize)
	yLinesPerOutput := float64(rows) / float64(outysize)
	yLinesPerOutputCeil := int(math.Ceil(yLinesPerOutput))
	for outputLine := 0; outputLine < outysize; outputLine++ {
		var startLine, endLine int
		if yLinesPerOutput > 1 {
			if outputLine != outysize-1 {
				startLine = int(math.Round(float64(outputLine) * yLinesPerOutput))
				endLine = int(math.Round(float64(outputLine+1) * yLinesPerOutput))
			} else { // last output line works backwards from the end
				endLine = rows
				startLine = endLine - yLinesPerOutputCeil
			}
		} else { // Y expansion
			startLine = int(math.Floor(float64(outputLine) * yLinesPerOutput))
			endLine = startLine + 1
		}

		numLines := endLine - startLine
		xThinData := make([]float64, numLines*outxsize)
		for line := startLine; line < endLine; line++ {
			DownSampleLineInX(frame[line*cols:(line+1)*cols], outxsize, transform, xThinData, line-startLine)
		}
		processedData = append(processedData, DownSampleLineInY(xThinData, outxsize, transform)...)
	}
	return processedData, nil
}

// ApplyCXmode maps real samples through a SigPlot complex mode and returns
// the result with its range.
func ApplyCXmode(datain []float64, cxmode string) ([]float64, float64, float64, error) {
	switch cxmode {
	case "Ma", "Ph", "Re", "IR", "Im", "Lo", "L2":
	default:
		return nil, 0, 0, fmt.Errorf("%w: unknown cxmode %q", ErrBadRequest, cxmode)
	}
	loThresh := 1.0e-20
	zmax := math.Inf(-1)
	zmin := math.Inf(1)
	outData := make([]float64, len(datain))
	for i := 0; i < len(datain); i++ {
		switch cxmode {
		case "Ma":
			outData[i] = math.Abs(datain[i])
		case "Ph":
			outData[i] = math.Atan2(0, datain[i])
		case "Re", "IR":
			outData[i] = datain[i]
		case "Im":
			outData[i] = 0
		case "Lo":
			mag2 := math.Max(datain[i]*datain[i], loThresh)
			outData[i] = 10 * math.Log10(mag2)
		case "L2":
			mag2 := math.Max(datain[i]*datain[i], loThresh)
			outData[i] = 20 * math.Log10(mag2)
		}
		zmax = math.Max(zmax, outData[i])
		zmin = math.Min(zmin, outData[i])
	}
	return outData, zmin, zmax, nil
}
