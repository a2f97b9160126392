package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SergeiKhy/scissors/internal/geo"
	"github.com/SergeiKhy/scissors/internal/metrics"
	"github.com/SergeiKhy/scissors/internal/models"
	"github.com/SergeiKhy/scissors/internal/repository"
	"go.uber.org/zap"
)

// Константы worker pool
const (
	defaultWorkerCount   = 3    // Количество воркеров
	defaultChannelBuffer = 1000 // Размер буфера канала
	maxRetries           = 3    // Максимальное количество попыток записи
	processTimeout       = 5 * time.Second
	directReferrer       = "direct"
)

// ErrProcessorStopped событие пришло после остановки процессора
var ErrProcessorStopped = errors.New("процессор кликов остановлен")

// LinkCounter учитывает клик по ссылке, встроенной в профиль пользователя
type LinkCounter interface {
	IncrementLinkCounter(ctx context.Context, linkID string) (*models.Link, error)
}

// ClickProcessor асинхронный учёт кликов: redirect не ждёт записи
type ClickProcessor interface {
	Start()
	Stop()
	RecordClick(ctx context.Context, req *models.ClickRequest) error
	GetAggregate(ctx context.Context, uniqueID string) (*models.ClickAggregate, error)
}

// ClickProcessorConfig размеры worker pool
type ClickProcessorConfig struct {
	Workers int
	Buffer  int
}

// clickProcessor реализация процессора кликов с использованием Worker Pool
type clickProcessor struct {
	clickRepo    repository.ClickRepository
	links        LinkCounter
	locator      geo.Locator
	logger       *zap.Logger
	clickChannel chan *models.ClickRequest
	workerCount  int
	wg           sync.WaitGroup

	// mu защищает отправку в канал от гонки с его закрытием в Stop
	mu      sync.RWMutex
	stopped bool
}

// NewClickProcessor создаёт новый экземпляр процессора кликов.
// links может быть nil, тогда учитывается только агрегат по uniqueId.
func NewClickProcessor(
	clickRepo repository.ClickRepository,
	links LinkCounter,
	locator geo.Locator,
	logger *zap.Logger,
	cfg ClickProcessorConfig,
) ClickProcessor {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkerCount
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultChannelBuffer
	}
	if locator == nil {
		locator = geo.Static(models.UnknownPlace())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &clickProcessor{
		clickRepo:    clickRepo,
		links:        links,
		locator:      locator,
		logger:       logger,
		clickChannel: make(chan *models.ClickRequest, cfg.Buffer),
		workerCount:  cfg.Workers,
	}
}

// Start запускает worker pool
func (p *clickProcessor) Start() {
	p.logger.Info("Запуск воркеров процессора кликов", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop закрывает приём событий и ждёт, пока воркеры дообработают буфер
func (p *clickProcessor) Stop() {
	p.logger.Info("Остановка процессора кликов...")

	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.clickChannel)
	}
	p.mu.Unlock()

	p.wg.Wait()
	metrics.ClickQueueDepth.Set(0)
	p.logger.Info("Процессор кликов остановлен")
}

// worker обрабатывает события кликов из канала до его закрытия
func (p *clickProcessor) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Воркер кликов запущен", zap.Int("id", id))

	for req := range p.clickChannel {
		metrics.ClickQueueDepth.Set(float64(len(p.clickChannel)))
		p.processClick(req)
	}

	p.logger.Debug("Воркер кликов остановлен", zap.Int("id", id))
}

// processClick обрабатывает одно событие клика с retry логикой
func (p *clickProcessor) processClick(req *models.ClickRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	referrer := req.Referrer
	if referrer == "" {
		referrer = directReferrer
	}

	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	event := models.ClickEvent{
		Referrer:  referrer,
		Timestamp: time.Now().UTC(),
		CreatedAt: createdAt,
		Location:  p.locator.Locate(ctx, req.ClientIP),
	}

	var err error
	for i := 0; i < maxRetries; i++ {
		var count int64
		if count, err = p.clickRepo.RecordClick(ctx, req.UniqueID, event); err == nil {
			metrics.ClickEventsTotal.WithLabelValues("recorded").Inc()
			p.logger.Debug("Клик записан",
				zap.String("alias", req.Alias),
				zap.String("unique_id", req.UniqueID),
				zap.Int64("click_count", count),
			)
			break
		}
		if i < maxRetries-1 {
			p.logger.Debug("Повторная попытка записи клика",
				zap.String("unique_id", req.UniqueID),
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
		}
	}
	if err != nil {
		metrics.ClickEventsTotal.WithLabelValues("failed").Inc()
		p.logger.Error("Не удалось записать клик после всех попыток",
			zap.String("unique_id", req.UniqueID),
			zap.Error(err),
		)
	}

	p.countLink(ctx, req)
}

// countLink увеличивает счётчик ссылки пользователя, если uniqueId принадлежит ей
func (p *clickProcessor) countLink(ctx context.Context, req *models.ClickRequest) {
	if p.links == nil {
		return
	}

	_, err := p.links.IncrementLinkCounter(ctx, req.UniqueID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrLinkNotFound):
		// Алиас не привязан к ссылке профиля
		p.logger.Debug("Ссылка пользователя для клика не найдена", zap.String("unique_id", req.UniqueID))
	default:
		p.logger.Warn("Не удалось обновить счётчик ссылки",
			zap.String("unique_id", req.UniqueID),
			zap.Error(err),
		)
	}
}

// RecordClick отправляет событие клика в worker pool (неблокирующая операция)
func (p *clickProcessor) RecordClick(ctx context.Context, req *models.ClickRequest) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrProcessorStopped
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.clickChannel <- req:
		metrics.ClickQueueDepth.Set(float64(len(p.clickChannel)))
		return nil
	default:
		// Канал заполнен: теряем статистику, но не задерживаем redirect
		metrics.ClickEventsTotal.WithLabelValues("dropped").Inc()
		p.logger.Warn("Буфер канала кликов заполнен, событие потеряно",
			zap.String("unique_id", req.UniqueID),
		)
		return nil
	}
}

// GetAggregate возвращает агрегат кликов по uniqueId
func (p *clickProcessor) GetAggregate(ctx context.Context, uniqueID string) (*models.ClickAggregate, error) {
	return p.clickRepo.GetAggregate(ctx, uniqueID)
}
