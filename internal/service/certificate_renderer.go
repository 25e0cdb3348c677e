package service

import (
	"bytes"
	"image"
	"quizcert/internal/util"
	"quizcert/pkg/logger"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
)

// 横向 Letter，单位 pt
const (
	pageWidth  = 792.0
	pageHeight = 612.0

	watermarkAlpha = 0.10
	textMargin     = 48.0

	sigX = 80.0
	sigY = 70.0 // 距页面底部
	sigW = 200.0
	sigH = 45.0
)

// CertificateRenderer 生成固定版式的结业证书
type CertificateRenderer struct {
	LogoPath       string
	SignaturePath  string
	Signatory      string
	SignatoryTitle string
}

// Render 返回 PDF 字节。图片素材缺失或损坏时降级，不会导致失败
func (r *CertificateRenderer) Render(studentName, testTitle string, date time.Time) ([]byte, error) {
	pdf := fpdf.New("L", "pt", "Letter", "")
	pdf.SetTitle("Certificate of Completion", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	r.drawWatermark(pdf)

	centered := func(style string, size float64, yFromBottom float64, text string) {
		text = tr(text)
		pdf.SetFont("Helvetica", style, size)
		// 过长的文本逐步缩小字号
		for size > 10 && pdf.GetStringWidth(text) > pageWidth-2*textMargin {
			size--
			pdf.SetFont("Helvetica", style, size)
		}
		pdf.Text((pageWidth-pdf.GetStringWidth(text))/2, pageHeight-yFromBottom, text)
	}

	centered("B", 34, pageHeight-110, "Certificate of Completion")
	centered("", 16, pageHeight-165, "This certifies that")
	centered("B", 28, pageHeight-215, studentName)
	centered("", 16, pageHeight-265, "has successfully completed")
	centered("B", 22, pageHeight-305, testTitle)
	centered("", 14, 85, "Date: "+date.Format(util.CertificateDate))

	r.drawSignature(pdf, tr)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawWatermark 按页面比例裁剪 logo 后铺满整页
func (r *CertificateRenderer) drawWatermark(pdf *fpdf.Fpdf) {
	if r.LogoPath == "" {
		return
	}
	img, err := imaging.Open(r.LogoPath)
	if err != nil {
		logger.Log.Warn("certificate logo unavailable", zap.String("path", r.LogoPath), zap.Error(err))
		return
	}

	w, h := coverSize(img.Bounds(), pageWidth/pageHeight)
	cover := imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, cover, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		logger.Log.Warn("encode certificate logo failed", zap.Error(err))
		return
	}

	opt := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader("watermark", opt, &buf)
	if !pdf.Ok() {
		logger.Log.Warn("register certificate logo failed", zap.Error(pdf.Error()))
		pdf.ClearError()
		return
	}

	pdf.SetAlpha(watermarkAlpha, "Normal")
	pdf.ImageOptions("watermark", 0, 0, pageWidth, pageHeight, false, opt, 0, "")
	pdf.SetAlpha(1, "Normal")
}

// coverSize 在原图分辨率内取得与目标宽高比一致的最大尺寸
func coverSize(b image.Rectangle, aspect float64) (int, int) {
	w, h := b.Dx(), b.Dy()
	if float64(w)/float64(h) > aspect {
		return int(float64(h)*aspect + 0.5), h
	}
	return w, int(float64(w)/aspect + 0.5)
}

func (r *CertificateRenderer) drawSignature(pdf *fpdf.Fpdf, tr func(string) string) {
	pdf.SetLineWidth(1)
	if !r.drawSignatureImage(pdf) {
		lineY := pageHeight - (sigY + 15)
		pdf.Line(sigX, lineY, sigX+sigW, lineY)
	}

	nameY := pageHeight - (sigY - 8)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(sigX, nameY, tr(r.Signatory))

	ruleY := nameY + 6
	pdf.Line(sigX, ruleY, sigX+180, ruleY)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(sigX, ruleY+14, tr(r.SignatoryTitle))
}

func (r *CertificateRenderer) drawSignatureImage(pdf *fpdf.Fpdf) bool {
	if r.SignaturePath == "" {
		return false
	}
	img, err := imaging.Open(r.SignaturePath)
	if err != nil {
		logger.Log.Warn("signature image unavailable", zap.String("path", r.SignaturePath), zap.Error(err))
		return false
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return false
	}

	opt := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("signature", opt, &buf)
	if !pdf.Ok() {
		logger.Log.Warn("register signature image failed", zap.Error(pdf.Error()))
		pdf.ClearError()
		return false
	}
	pdf.ImageOptions("signature", sigX, pageHeight-sigY-sigH, sigW, sigH, false, opt, 0, "")
	return true
}
