package bot

import (
	"context"
	"fmt"
	"strings"

	"sauti/internal/wer"
	"sauti/pkg/model"

	tele "gopkg.in/telebot.v4"
)

// Notifier sends finished jobs back to the originating chat. It does not
// poll for updates, so the worker can use it next to a running bot.
type Notifier struct {
	tb *tele.Bot
}

func NewNotifier(token string) (*Notifier, error) {
	tb, err := tele.NewBot(tele.Settings{Token: token, Offline: true})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}
	return &Notifier{tb: tb}, nil
}

func (n *Notifier) NotifyJob(_ context.Context, job *model.Job) error {
	opts := &tele.SendOptions{}
	if job.MessageID != 0 {
		opts.ReplyTo = &tele.Message{ID: int(job.MessageID)}
	}
	_, err := n.tb.Send(&tele.Chat{ID: job.ChatID}, formatJob(job), opts)
	return err
}

func formatJob(job *model.Job) string {
	if job.Status != model.JobStatusDone || job.Result == nil {
		return "Samahani, sikuweza kutambua ujumbe wa sauti baada ya majaribio kadhaa."
	}

	r := job.Result
	var sb strings.Builder
	fmt.Fprintf(&sb, "Nimesikia: %q\n", r.Transcript)
	fmt.Fprintf(&sb, "Marejeo: %q\n", r.Reference)
	fmt.Fprintf(&sb, "WER: %.2f (iliyorekebishwa %.2f, uhakika %d%%)\n", r.WER.WER, r.AdjustedWER, r.Confidence)
	fmt.Fprintf(&sb, "Ubadilishaji %d, uongezaji %d, ufutaji %d",
		r.WER.Substitutions, r.WER.Insertions, r.WER.Deletions)

	for _, op := range r.WER.Operations {
		if op.Kind == wer.OpSubstitution {
			fmt.Fprintf(&sb, "\n• %s → %s", op.Ref, op.Hyp)
		}
	}
	return sb.String()
}
