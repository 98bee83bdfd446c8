package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// -------------------- 运行时监控 --------------------

type Sample struct {
	Timestamp  time.Time
	MemTotal   uint64
	MemUsed    uint64
	Goroutines int
}

type Monitor struct {
	samples  []Sample
	interval time.Duration
	stopChan chan struct{}
}

func NewMonitor(interval time.Duration) *Monitor {
	return &Monitor{
		samples:  make([]Sample, 0, 512),
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (m *Monitor) collect() Sample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s := Sample{
		Timestamp:  time.Now(),
		MemTotal:   ms.Sys,
		MemUsed:    ms.Alloc,
		Goroutines: runtime.NumGoroutine(),
	}
	m.samples = append(m.samples, s)
	return s
}

func (m *Monitor) Start() {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s := m.collect()
				fmt.Printf("[%s] 内存: %.1fMB/%.1fMB | Goroutines: %d\n",
					s.Timestamp.Format("15:04:05"),
					float64(s.MemUsed)/1024/1024, float64(s.MemTotal)/1024/1024,
					s.Goroutines,
				)
			case <-m.stopChan:
				return
			}
		}
	}()
}

func (m *Monitor) Stop() { close(m.stopChan) }

func (m *Monitor) Report() {
	if len(m.samples) == 0 {
		fmt.Println("没有监控数据")
		return
	}
	var sumGo, maxGo int
	var maxMem uint64
	for _, s := range m.samples {
		sumGo += s.Goroutines
		if s.Goroutines > maxGo {
			maxGo = s.Goroutines
		}
		if s.MemUsed > maxMem {
			maxMem = s.MemUsed
		}
	}
	n := len(m.samples)
	fmt.Println("\n=== 监控报告 ===")
	fmt.Printf("持续: %v\n", m.samples[n-1].Timestamp.Sub(m.samples[0].Timestamp))
	fmt.Printf("平均Goroutine: %d, 峰值Goroutine: %d\n", sumGo/n, maxGo)
	fmt.Printf("峰值内存: %.1fMB\n", float64(maxMem)/1024/1024)
}

// -------------------- 压测统计 --------------------

type BenchStats struct {
	Total     int
	Succeeded int
	Failed    int
	AvgLat    time.Duration
	MaxLat    time.Duration
	MinLat    time.Duration
	mu        sync.Mutex
}

func (s *BenchStats) Add(success bool, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Total++
	if !success {
		s.Failed++
		return
	}
	s.Succeeded++
	if s.AvgLat == 0 {
		s.AvgLat = latency
		s.MaxLat = latency
		s.MinLat = latency
		return
	}
	s.AvgLat = (s.AvgLat + latency) / 2
	if latency > s.MaxLat {
		s.MaxLat = latency
	}
	if latency < s.MinLat {
		s.MinLat = latency
	}
}

// -------------------- API客户端 --------------------

// envelope 服务端统一响应结构
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiClient struct {
	base   string
	http   *http.Client
	token  string
	userID uint
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: base,
		http: &http.Client{Timeout: 8 * time.Second},
	}
}

func (c *apiClient) postJSON(path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("响应解析失败: %w", err)
	}
	if env.Code != 0 {
		return fmt.Errorf("请求失败(%d): %s", env.Code, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

type authResult struct {
	User struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	AccessToken string `json:"access_token"`
}

// Register 注册并保存凭据
func (c *apiClient) Register(username, password string) error {
	var out authResult
	if err := c.postJSON("/api/v1/users/register", map[string]string{
		"username": username,
		"password": password,
	}, &out); err != nil {
		return err
	}
	c.token = out.AccessToken
	c.userID = out.User.ID
	return nil
}

// Login 登录刷新令牌
func (c *apiClient) Login(username, password string) error {
	var out authResult
	if err := c.postJSON("/api/v1/users/login", map[string]string{
		"username": username,
		"password": password,
	}, &out); err != nil {
		return err
	}
	c.token = out.AccessToken
	c.userID = out.User.ID
	return nil
}

// OpenDirectChat 建立（或复用）与指定用户的私聊
func (c *apiClient) OpenDirectChat(peerID uint) (uint, error) {
	var out struct {
		ID uint `json:"id"`
	}
	err := c.postJSON(fmt.Sprintf("/api/v1/chats/with/%d", peerID), map[string]string{}, &out)
	return out.ID, err
}

// SendMessage 向会话发送文本消息
func (c *apiClient) SendMessage(conversationID uint, text string) error {
	return c.postJSON(fmt.Sprintf("/api/v1/conversations/%d/messages", conversationID),
		map[string]string{"text": text}, nil)
}

// -------------------- 注册/登录/发消息压测 --------------------

func runMessageBench(base string, concurrency, perGoroutine int) {
	fmt.Println("\n=== 注册/登录/发消息压测开始 ===")
	fmt.Printf("目标: %s 并发: %d 每协程消息数: %d\n", base, concurrency, perGoroutine)

	// 所有压测用户都与同一个对端用户私聊
	stamp := time.Now().UnixNano()
	peer := newAPIClient(base)
	peerName := fmt.Sprintf("bench_peer_%d", stamp)
	if err := peer.Register(peerName, "bench123456"); err != nil {
		fmt.Printf("对端用户注册失败: %v\n", err)
		return
	}

	stats := &BenchStats{}
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			c := newAPIClient(base)
			name := fmt.Sprintf("bench_u%d_%d", stamp, id)
			if err := c.Register(name, "bench123456"); err != nil {
				fmt.Printf("[协程%d] 注册失败: %v\n", id, err)
				return
			}
			if err := c.Login(name, "bench123456"); err != nil {
				fmt.Printf("[协程%d] 登录失败: %v\n", id, err)
				return
			}
			convID, err := c.OpenDirectChat(peer.userID)
			if err != nil {
				fmt.Printf("[协程%d] 建立私聊失败: %v\n", id, err)
				return
			}

			for j := 0; j < perGoroutine; j++ {
				begin := time.Now()
				err := c.SendMessage(convID, fmt.Sprintf("压测消息 %d-%d", id, j))
				stats.Add(err == nil, time.Since(begin))
				time.Sleep(5 * time.Millisecond)
			}
		}(i)
	}
	wg.Wait()

	took := time.Since(start)
	fmt.Println("\n=== 发消息压测结果 ===")
	fmt.Printf("耗时: %v\n", took)
	fmt.Printf("总请求: %d 成功: %d 失败: %d\n", stats.Total, stats.Succeeded, stats.Failed)
	fmt.Printf("延迟 平均: %v 最大: %v 最小: %v\n", stats.AvgLat, stats.MaxLat, stats.MinLat)
	if took > 0 {
		fmt.Printf("QPS: %.2f\n", float64(stats.Succeeded)/took.Seconds())
	}
	if stats.Total > 0 {
		fmt.Printf("成功率: %.2f%%\n", float64(stats.Succeeded)/float64(stats.Total)*100)
	}
}

// -------------------- 入口 --------------------

func intArg(index, fallback int) int {
	if len(os.Args) > index {
		if v, err := strconv.Atoi(os.Args[index]); err == nil {
			return v
		}
	}
	return fallback
}

func main() {
	concurrency := intArg(1, 5)
	perGoroutine := intArg(2, 10)
	monitorSeconds := intArg(3, 20)

	baseURL := "http://localhost:8080"

	fmt.Println("=== NexChat 并发与监控测试 ===")
	fmt.Printf("开始时间: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Printf("目标: %s 并发: %d 每协程消息数: %d 监控: %ds\n", baseURL, concurrency, perGoroutine, monitorSeconds)

	mon := NewMonitor(1 * time.Second)
	mon.Start()
	go func() {
		time.Sleep(time.Duration(monitorSeconds) * time.Second)
		mon.Stop()
	}()

	runMessageBench(baseURL, concurrency, perGoroutine)

	time.Sleep(time.Duration(monitorSeconds+1) * time.Second)
	mon.Report()

	fmt.Println("\n=== 测试完成 ===")
}
