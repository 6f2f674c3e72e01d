package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"exam-solver/api/internal/exam"
	"exam-solver/api/internal/solve"
	"exam-solver/api/internal/store"
)

// startSolve submits the last page of the chat as a job and waits for the
// result in the background. prefix is put at the top of the answer.
func (r *Router) startSolve(chatID int64, prefix string) {
	text := r.state.text(chatID)
	if text == "" {
		r.send(chatID, "Сначала пришли фото или текст страницы.")
		return
	}
	if id, busy := r.state.solving.Load(chatID); busy {
		r.send(chatID, fmt.Sprintf("Уже решаю (задача %s), подожди немного.", id))
		return
	}
	gen, err := r.generator(chatID)
	if err != nil {
		r.SendError(chatID, err)
		return
	}

	jobID := fmt.Sprintf("tg-%d-%d", chatID, time.Now().UnixNano())
	job, err := r.Runner.Submit(context.Background(), solve.Request{
		JobID:     jobID,
		Text:      text,
		Prefix:    prefix,
		Language:  exam.DetectLanguage(text),
		Generator: gen,
	})
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	r.state.solving.Store(chatID, job.ID)
	r.send(chatID, "⏳ Решаю ("+gen.Name()+")...")

	go func() {
		defer r.state.solving.Delete(chatID)
		r.deliver(chatID, job.ID)
	}()
}

// deliver polls the job store until the job is terminal and posts the outcome.
func (r *Router) deliver(chatID int64, jobID string) {
	every, limit := r.PollEvery, r.PollTimeout
	if every <= 0 {
		every = 2 * time.Second
	}
	if limit <= 0 {
		limit = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), limit)
	defer cancel()

	job, err := waitJob(ctx, r.Jobs, jobID, every)
	if err != nil {
		log.Printf("telegram: chat=%d job=%s wait: %v", chatID, jobID, err)
		r.send(chatID, "Не дождался ответа, попробуй /solve ещё раз позже.")
		return
	}
	if job.Status == store.StatusError {
		r.send(chatID, "❌ Не получилось решить: "+job.Message)
		return
	}
	r.send(chatID, job.Answer)
}

func waitJob(ctx context.Context, jobs store.JobStore, id string, every time.Duration) (store.Job, error) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		job, err := jobs.Get(ctx, id)
		switch {
		case err == nil && job.Status.Terminal():
			return job, nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			log.Printf("telegram: job=%s poll: %v", id, err)
		}
		select {
		case <-ctx.Done():
			return store.Job{}, ctx.Err()
		case <-t.C:
		}
	}
}
