package publisher

import (
	"time"

	"github.com/sirupsen/logrus"
)

func (p *Publisher) SetClock(now func() time.Time) {
	p.now = now
}

func (p *Publisher) SetLogger(l *logrus.Logger) {
	p.logger = l
}
