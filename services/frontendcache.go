package services

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rainbowsvgs/spectra/cache"
	"github.com/rainbowsvgs/spectra/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"github.com/timandy/routine"
)

// FrontendCacheService builds page models behind a tiered cache.
// Concurrent requests for the same page key share a single build, so a
// burst of hits on an uncached page does only one snapshot walk.
type FrontendCacheService struct {
	callSequence    uint64
	callSequenceMux sync.Mutex
	tieredCache     *cache.TieredCache
	inflightMux     sync.Mutex
	inflightPages   map[string]*FrontendCacheProcessingPage
	stackBufMux     sync.RWMutex
	stackBuf        []byte

	pageCallCount    *prometheus.CounterVec
	pageCallDuration *prometheus.HistogramVec
	pageCallCacheHit *prometheus.CounterVec
}

// FrontendCacheProcessingPage tracks one in-flight page build. The
// build fn sets CacheTimeout to control how long its result is cached,
// a negative timeout skips caching.
type FrontendCacheProcessingPage struct {
	CallCtx      context.Context
	modelMutex   sync.RWMutex
	pageModel    interface{}
	pageError    error
	PageKey      string
	CacheTimeout time.Duration
}

type PageDataHandlerFn = func(pageCall *FrontendCacheProcessingPage) interface{}

var GlobalFrontendCache *FrontendCacheService

type FrontendCachePageError struct {
	err   error
	name  string
	stack string
}

func (e FrontendCachePageError) Error() string {
	return e.err.Error()
}
func (e FrontendCachePageError) Name() string {
	return e.name
}
func (e FrontendCachePageError) Stack() string {
	return e.stack
}

// StartFrontendCache initializes the global page cache service.
func StartFrontendCache() error {
	if GlobalFrontendCache != nil {
		return nil
	}

	cachePrefix := fmt.Sprintf("%sgui-", utils.Config.Frontend.RedisCachePrefix)
	tieredCache, err := cache.NewTieredCache(utils.Config.Frontend.LocalCacheSize, utils.Config.Frontend.RedisCacheAddr, cachePrefix)
	if err != nil {
		return err
	}

	GlobalFrontendCache = &FrontendCacheService{
		tieredCache:   tieredCache,
		inflightPages: make(map[string]*FrontendCacheProcessingPage),
		stackBuf:      make([]byte, 1024*1024*5),

		pageCallCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spectra_frontend_page_call_count",
			Help: "Number of page calls",
		}, []string{"page"}),
		pageCallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spectra_frontend_page_call_duration",
			Help:    "Processing time for page calls",
			Buckets: []float64{0, 25, 50, 75, 100, 250, 500, 750, 1000, 2500, 5000, 10000, 20000, 30000, 60000, 120000},
		}, []string{"page"}),
		pageCallCacheHit: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spectra_frontend_page_call_cache_hit",
			Help: "Number of page calls that were served from cache",
		}, []string{"page"}),
	}
	return nil
}

// ProcessCachedPage returns the cached model for pageKey or runs buildFn
// to create it. If another request is already building the same page the
// caller blocks on that build instead of starting its own.
func (fc *FrontendCacheService) ProcessCachedPage(pageKey string, caching bool, returnValue interface{}, buildFn PageDataHandlerFn) (interface{}, error) {
	pageType, _, _ := strings.Cut(pageKey, ":")

	fc.pageCallCount.WithLabelValues(pageType).Inc()

	fc.inflightMux.Lock()
	inflightPage := fc.inflightPages[pageKey]
	if inflightPage != nil {
		fc.inflightMux.Unlock()
		logrus.Debugf("page already processing: %v", pageKey)

		fc.pageCallCacheHit.WithLabelValues(pageType).Inc()

		inflightPage.modelMutex.RLock()
		defer inflightPage.modelMutex.RUnlock()
		return inflightPage.pageModel, inflightPage.pageError
	}
	inflightPage = &FrontendCacheProcessingPage{
		PageKey:      pageKey,
		CacheTimeout: -1,
	}
	fc.inflightPages[pageKey] = inflightPage
	inflightPage.modelMutex.Lock()
	defer fc.completePageLoad(pageKey, inflightPage)
	fc.inflightMux.Unlock()

	startTime := time.Now()
	var returnError error
	returnValue, returnError = fc.processPageCall(pageKey, caching, returnValue, buildFn, inflightPage)
	inflightPage.pageModel = returnValue
	inflightPage.pageError = returnError

	fc.pageCallDuration.WithLabelValues(pageType).Observe(float64(time.Since(startTime).Milliseconds()))

	return returnValue, returnError
}

func (fc *FrontendCacheService) processPageCall(pageKey string, caching bool, pageData interface{}, buildFn PageDataHandlerFn, pageCall *FrontendCacheProcessingPage) (interface{}, error) {
	returnChan := make(chan interface{})
	errorChan := make(chan error)
	isTimedOut := false

	callCtx, callCtxCancel := context.WithCancel(context.Background())
	defer callCtxCancel()
	pageCall.CallCtx = callCtx

	fc.callSequenceMux.Lock()
	fc.callSequence++
	callIdx := fc.callSequence
	fc.callSequenceMux.Unlock()

	callGoId := uint64(0)
	useCache := caching && !utils.Config.Frontend.Debug && !utils.Config.Frontend.DisablePageCache

	go func(callIdx uint64) {
		defer func() {
			if err := recover(); err != nil {
				errorChan <- &FrontendCachePageError{
					name:  "page panic",
					err:   fmt.Errorf("page call %v panic: %v", callIdx, err),
					stack: string(debug.Stack()),
				}
			}
		}()

		callGoId = routine.Goid()

		if useCache && fc.getFrontendCache(pageKey, pageData) == nil {
			logrus.Debugf("page served from cache: %v", pageKey)
			if !isTimedOut {
				returnChan <- pageData
			}
			return
		}

		pageData = buildFn(pageCall)

		if isTimedOut {
			return
		}
		if useCache && pageCall.CacheTimeout >= 0 {
			fc.setFrontendCache(pageKey, pageData, pageCall.CacheTimeout)
		}
		if !isTimedOut {
			returnChan <- pageData
		}
	}(callIdx)

	callTimeout := utils.Config.Frontend.PageCallTimeout
	if callTimeout == 0 {
		callTimeout = 30 * time.Second
	}

	select {
	case returnValue := <-returnChan:
		return returnValue, nil
	case returnError := <-errorChan:
		return nil, returnError
	case <-time.After(callTimeout):
		isTimedOut = true
		callCtxCancel()
		return nil, &FrontendCachePageError{
			name:  "page timeout",
			err:   fmt.Errorf("page call %v timeout", callIdx),
			stack: fc.extractPageCallStack(callGoId),
		}
	}
}

func (fc *FrontendCacheService) getFrontendCache(pageKey string, returnValue interface{}) error {
	_, err := fc.tieredCache.Get(pageKey, returnValue)
	return err
}

func (fc *FrontendCacheService) setFrontendCache(pageKey string, value interface{}, timeout time.Duration) error {
	return fc.tieredCache.Set(pageKey, value, timeout)
}

func (fc *FrontendCacheService) completePageLoad(pageKey string, inflightPage *FrontendCacheProcessingPage) {
	inflightPage.modelMutex.Unlock()
	fc.inflightMux.Lock()
	delete(fc.inflightPages, pageKey)
	fc.inflightMux.Unlock()
}

// extractPageCallStack captures a full goroutine dump and returns the
// section belonging to the timed out page builder.
func (fc *FrontendCacheService) extractPageCallStack(callGoid uint64) string {
	if fc.stackBufMux.TryLock() {
		runtime.Stack(fc.stackBuf, true)
		fc.stackBufMux.Unlock()
	}
	fc.stackBufMux.RLock()
	defer fc.stackBufMux.RUnlock()

	scanner := bufio.NewScanner(bytes.NewReader(fc.stackBuf))
	stackTrace := []string{}
	isRelevantCall := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "goroutine ") {
			if isRelevantCall {
				break
			}

			isRelevantCall = strings.HasPrefix(line, fmt.Sprintf("goroutine %v ", callGoid))
		}

		if isRelevantCall {
			stackTrace = append(stackTrace, line)
		}
	}

	if !isRelevantCall {
		return "call stack not found"
	}

	return strings.Join(stackTrace, "\n")
}
