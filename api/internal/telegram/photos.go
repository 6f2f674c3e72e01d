package telegram

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"io"
	"log"
	"math"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"exam-solver/api/internal/exam"
	"exam-solver/api/internal/ocr"
)

const maxPixels = 18_000_000

var httpClient = &http.Client{Timeout: 60 * time.Second}

// acceptPhoto collects album pages; the batch is processed once no new page
// arrived for the debounce interval.
func (r *Router) acceptPhoto(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	ph := msg.Photo[len(msg.Photo)-1] // самое большое превью
	url, err := r.Bot.GetFileDirectURL(ph.FileID)
	if err != nil {
		r.SendError(cid, err)
		return
	}
	img, err := download(url)
	if err != nil {
		r.SendError(cid, err)
		return
	}

	key := fmt.Sprintf("chat:%d", cid)
	if msg.MediaGroupID != "" {
		key = "grp:" + msg.MediaGroupID
	}
	bi, _ := r.state.batches.LoadOrStore(key, &photoBatch{ChatID: cid, Key: key})
	b := bi.(*photoBatch)

	b.mu.Lock()
	b.images = append(b.images, img)
	first := len(b.images) == 1
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(r.debounce(), func() { r.processBatch(key) })
	b.mu.Unlock()

	if first {
		r.send(cid, "Фото принято, распознаю...")
	}
}

func (r *Router) processBatch(key string) {
	bi, ok := r.state.batches.LoadAndDelete(key)
	if !ok {
		return
	}
	b := bi.(*photoBatch)
	b.mu.Lock()
	images := append([][]byte(nil), b.images...)
	b.mu.Unlock()
	if len(images) == 0 {
		return
	}

	page := images[0]
	if len(images) > 1 {
		merged, err := stitch(images)
		if err != nil {
			r.SendError(b.ChatID, fmt.Errorf("склейка: %w", err))
			return
		}
		page = merged
	}

	eng, err := r.OCR.Get("")
	if err != nil {
		r.SendError(b.ChatID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.ocrTimeout())
	defer cancel()
	start := time.Now()
	text, err := eng.Recognize(ctx, page, ocr.LanguageCodes(r.OCRLangs))
	if err != nil {
		r.SendError(b.ChatID, fmt.Errorf("OCR: %w", err))
		return
	}
	log.Printf("ocr: chat=%d engine=%s pages=%d chars=%d in %s", b.ChatID, eng.Name(), len(images), len(text), time.Since(start))
	r.acceptText(b.ChatID, text)
}

// acceptText remembers the page text for /solve and replies with the parsed questions.
func (r *Router) acceptText(chatID int64, text string) {
	r.state.setText(chatID, text)
	pr := exam.Parse(text)

	msg := tgbotapi.NewMessage(chatID, formatParse(pr))
	msg.ReplyMarkup = makeSolveKeyboard()
	_, _ = r.Bot.Send(msg)
}

// stitch places pages one under another on a white canvas, scaling the
// result down to maxPixels.
func stitch(images [][]byte) ([]byte, error) {
	decoded := make([]image.Image, 0, len(images))
	maxW, sumH := 0, 0
	for i, b := range images {
		img, _, err := image.Decode(bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("страница %d: %w", i+1, err)
		}
		decoded = append(decoded, img)
		maxW = max(maxW, img.Bounds().Dx())
		sumH += img.Bounds().Dy()
	}
	if maxW == 0 || sumH == 0 {
		return nil, fmt.Errorf("пустые изображения")
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxW, sumH))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	y := 0
	for _, img := range decoded {
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		x := (maxW - w) / 2
		draw.Draw(dst, image.Rect(x, y, x+w, y+h), img, img.Bounds().Min, draw.Over)
		y += h
	}

	final := image.Image(dst)
	if total := maxW * sumH; total > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(total))
		final = scaleDown(dst, max(1, int(float64(maxW)*scale)), max(1, int(float64(sumH)*scale)))
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, final, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// scaleDown: nearest neighbour, качества хватает для OCR.
func scaleDown(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	for y := 0; y < h; y++ {
		sy := sb.Min.Y + y*sb.Dy()/h
		for x := 0; x < w; x++ {
			dst.Set(x, y, src.At(sb.Min.X+x*sb.Dx()/w, sy))
		}
	}
	return dst
}

func download(url string) ([]byte, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("download: status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}
