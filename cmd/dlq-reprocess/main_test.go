package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

func testConfig() config {
	return config{
		sourceTopic:    kafka.TopicDeadLetterQueue,
		orderTopic:     kafka.TopicOrderEvents,
		inventoryTopic: kafka.TopicInventoryEvents,
		limit:          10,
		idleTimeout:    20 * time.Millisecond,
	}
}

func consumerDLQMessage(offset int64, key string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{
		Offset: offset,
		Key:    []byte(key),
		Value:  []byte(`{"id":"evt-1","event_type":"InventoryCommitted"}`),
		Headers: []*sarama.RecordHeader{
			{Key: []byte(kafka.HeaderRetryCount), Value: []byte("3")},
			{Key: []byte(kafka.HeaderOriginalTopic), Value: []byte(kafka.TopicInventoryEvents)},
		},
	}
}

func outboxDLQMessage(t *testing.T, offset int64, eventType, payload string) *sarama.ConsumerMessage {
	t.Helper()
	raw, err := json.Marshal(kafka.NewOutboxEnvelope(domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     eventType,
		Payload:       []byte(payload),
	}))
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &sarama.ConsumerMessage{Offset: offset, Value: raw}
}

func TestParseBrokers(t *testing.T) {
	brokers := parseBrokers(" broker-1:9092, ,broker-2:9092 ")
	if len(brokers) != 2 || brokers[0] != "broker-1:9092" || brokers[1] != "broker-2:9092" {
		t.Fatalf("unexpected brokers: %+v", brokers)
	}
}

func TestExtractReplayMessage_ConsumerDLQ(t *testing.T) {
	got, ok, err := extractReplayMessage(consumerDLQMessage(0, "order-1"), testConfig())
	if err != nil || !ok {
		t.Fatalf("expected replay candidate, ok=%v err=%v", ok, err)
	}
	if got.topic != kafka.TopicInventoryEvents {
		t.Fatalf("unexpected topic: %s", got.topic)
	}
	if got.key != "order-1" {
		t.Fatalf("unexpected key: %s", got.key)
	}
	if !strings.Contains(string(got.value), "evt-1") {
		t.Fatalf("unexpected value: %s", got.value)
	}
}

func TestExtractReplayMessage_OutboxRouting(t *testing.T) {
	tests := []struct {
		eventType string
		want      string
	}{
		{eventType: domain.OutboxEventInventoryCommitted, want: kafka.TopicInventoryEvents},
		{eventType: domain.OutboxEventInventoryChanged, want: kafka.TopicInventoryEvents},
		{eventType: "OrderConfirmed", want: kafka.TopicOrderEvents},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			got, ok, err := extractReplayMessage(outboxDLQMessage(t, 0, tt.eventType, `{"product_ids":[1]}`), testConfig())
			if err != nil || !ok {
				t.Fatalf("expected replay candidate, ok=%v err=%v", ok, err)
			}
			if got.topic != tt.want {
				t.Fatalf("unexpected topic: got=%s want=%s", got.topic, tt.want)
			}
			if got.key != "order-1" {
				t.Fatalf("unexpected key: %s", got.key)
			}

			var envelope kafka.OutboxEnvelope
			if err := json.Unmarshal(got.value, &envelope); err != nil {
				t.Fatalf("replay value must be an envelope: %v", err)
			}
			if envelope.EventType != tt.eventType || string(envelope.Payload) != `{"product_ids":[1]}` {
				t.Fatalf("unexpected envelope: %+v", envelope)
			}
		})
	}
}

func TestExtractReplayMessage_OutboxWithoutPayload(t *testing.T) {
	_, ok, err := extractReplayMessage(outboxDLQMessage(t, 0, "OrderConfirmed", ""), testConfig())
	if err == nil {
		t.Fatal("expected error for missing payload")
	}
	if ok {
		t.Fatal("expected no replay candidate")
	}
}

func TestExtractReplayMessage_Unknown(t *testing.T) {
	for _, value := range []string{`{"foo":"bar"}`, `not-json`} {
		_, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: []byte(value)}, testConfig())
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", value, err)
		}
		if ok {
			t.Fatalf("expected %s to be skipped", value)
		}
	}
}

func TestReadConfig(t *testing.T) {
	cfg, err := readConfig([]string{
		"-brokers=broker-1:9092,broker-2:9092",
		"-limit=10",
		"-execute=true",
		"-from-newest=true",
		"-idle-timeout=3s",
	}, func(string) string { return "" })
	if err != nil {
		t.Fatalf("readConfig failed: %v", err)
	}
	if len(cfg.brokers) != 2 || cfg.limit != 10 || !cfg.execute || !cfg.fromNewest || cfg.idleTimeout != 3*time.Second {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.sourceTopic != kafka.TopicDeadLetterQueue || cfg.inventoryTopic != kafka.TopicInventoryEvents {
		t.Fatalf("unexpected default topics: %+v", cfg)
	}

	cfg, err = readConfig(nil, func(key string) string {
		if key == "OMS_KAFKA_BROKERS" {
			return "env-broker:9092"
		}
		return ""
	})
	if err != nil {
		t.Fatalf("readConfig with env failed: %v", err)
	}
	if len(cfg.brokers) != 1 || cfg.brokers[0] != "env-broker:9092" {
		t.Fatalf("unexpected brokers from env: %+v", cfg.brokers)
	}
}

func TestReadConfig_ValidationErrors(t *testing.T) {
	noEnv := func(string) string { return "" }
	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"-brokers="}, want: "kafka brokers are required"},
		{args: []string{"-brokers=b:9092", "-source-topic="}, want: "source-topic is required"},
		{args: []string{"-brokers=b:9092", "-inventory-topic="}, want: "inventory-topic are required"},
		{args: []string{"-brokers=b:9092", "-limit=0"}, want: "limit must be > 0"},
		{args: []string{"-brokers=b:9092", "-idle-timeout=0s"}, want: "idle-timeout must be > 0"},
		{args: []string{"-unknown"}, want: "flag provided but not defined"},
	}
	for _, tt := range tests {
		_, err := readConfig(tt.args, noEnv)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("args %v: expected %q, got %v", tt.args, tt.want, err)
		}
	}
}

func TestPublishReplay(t *testing.T) {
	if err := publishReplay(nil, replayMessage{}); err == nil {
		t.Fatal("expected error for nil producer")
	}

	producer := &stubReplayProducer{}
	if err := publishReplay(producer, replayMessage{topic: "topic", key: "key", value: []byte(`{"x":1}`)}); err != nil {
		t.Fatalf("publishReplay failed: %v", err)
	}
	if producer.calls != 1 || producer.lastMsg == nil || producer.lastMsg.Topic != "topic" {
		t.Fatalf("unexpected producer state: calls=%d msg=%+v", producer.calls, producer.lastMsg)
	}

	producer.sendErr = errors.New("send failed")
	if err := publishReplay(producer, replayMessage{topic: "topic"}); err == nil {
		t.Fatal("expected publishReplay error")
	}
}

func TestProcessPartition_DryRunAndExecute(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 3}}}
	newConsumer := func() *stubPartitionConsumerSource {
		return &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{
				consumerDLQMessage(0, "order-1"),
				{Offset: 1, Value: []byte(`garbage`)},
				outboxDLQMessage(t, 2, "OrderCancelled", `{"reason":"x"}`),
			}),
		}}
	}

	stats, err := processPartition(context.Background(), newConsumer(), client, nil, testConfig(), 0, 10)
	if err != nil {
		t.Fatalf("dry-run failed: %v", err)
	}
	if stats.processed != 3 || stats.replayed != 2 || stats.skipped != 1 {
		t.Fatalf("unexpected dry-run stats: %+v", stats)
	}

	cfg := testConfig()
	cfg.execute = true
	producer := &stubReplayProducer{}
	stats, err = processPartition(context.Background(), newConsumer(), client, producer, cfg, 0, 10)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if stats.replayed != 2 || producer.calls != 2 {
		t.Fatalf("unexpected execute stats: %+v calls=%d", stats, producer.calls)
	}
	if producer.lastMsg.Topic != kafka.TopicOrderEvents {
		t.Fatalf("unexpected last topic: %s", producer.lastMsg.Topic)
	}
}

func TestProcessPartition_FromNewest(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 10}}}
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
		0: closedPartitionConsumer(nil),
	}}
	cfg := testConfig()
	cfg.fromNewest = true

	if _, err := processPartition(context.Background(), consumer, client, nil, cfg, 0, 3); err != nil {
		t.Fatalf("processPartition failed: %v", err)
	}
	if len(consumer.calls) != 1 || consumer.calls[0].offset != 7 {
		t.Fatalf("unexpected consume calls: %+v", consumer.calls)
	}
}

func TestProcessPartition_ErrorBranches(t *testing.T) {
	cfg := testConfig()
	cfg.execute = true

	clientOffsetErr := &stubOffsetClient{offsetErr: map[int32]error{0: errors.New("offset")}}
	if _, err := processPartition(context.Background(), &stubPartitionConsumerSource{}, clientOffsetErr, &stubReplayProducer{}, cfg, 0, 1); err == nil {
		t.Fatal("expected offset error")
	}

	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	consumerErr := &stubPartitionConsumerSource{consumeErr: errors.New("consume")}
	if _, err := processPartition(context.Background(), consumerErr, client, &stubReplayProducer{}, cfg, 0, 1); err == nil {
		t.Fatal("expected consume error")
	}

	pcWithErr := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError, 1),
	}
	pcWithErr.errors <- &sarama.ConsumerError{Err: errors.New("consumer boom")}
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: pcWithErr}}
	if _, err := processPartition(context.Background(), consumer, client, &stubReplayProducer{}, cfg, 0, 1); err == nil {
		t.Fatal("expected consumer error branch")
	}

	consumer = &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
		0: closedPartitionConsumer([]*sarama.ConsumerMessage{consumerDLQMessage(0, "order-1")}),
	}}
	producer := &stubReplayProducer{sendErr: errors.New("send fail")}
	if _, err := processPartition(context.Background(), consumer, client, producer, cfg, 0, 1); err == nil {
		t.Fatal("expected producer send error")
	}
}

func TestProcessPartition_IdleTimeoutAndContext(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	idle := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError),
	}
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: idle}}
	cfg := testConfig()
	cfg.idleTimeout = 10 * time.Millisecond

	stats, err := processPartition(context.Background(), consumer, client, nil, cfg, 0, 1)
	if err != nil {
		t.Fatalf("unexpected idle-timeout error: %v", err)
	}
	if stats.processed != 0 {
		t.Fatalf("expected processed=0, got %+v", stats)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := processPartition(ctx, consumer, client, nil, cfg, 0, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestRunReplay(t *testing.T) {
	cfg := testConfig()
	cfg.limit = 1

	if err := runReplay(context.Background(), cfg, nil, nil, nil); err == nil {
		t.Fatal("expected missing deps error")
	}

	client := &stubOffsetClient{
		partitions: []int32{2, 0},
		offsets: map[int32]offsetRange{
			0: {oldest: 0, newest: 1},
			2: {oldest: 0, newest: 1},
		},
	}
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
		0: closedPartitionConsumer([]*sarama.ConsumerMessage{consumerDLQMessage(0, "order-1")}),
		2: closedPartitionConsumer([]*sarama.ConsumerMessage{consumerDLQMessage(0, "order-2")}),
	}}

	if err := runReplay(context.Background(), cfg, client, consumer, nil); err != nil {
		t.Fatalf("runReplay failed: %v", err)
	}
	if len(consumer.calls) != 1 || consumer.calls[0].partition != 0 {
		t.Fatalf("expected only sorted partition 0 due to limit=1, got %+v", consumer.calls)
	}

	executeCfg := cfg
	executeCfg.execute = true
	if err := runReplay(context.Background(), executeCfg, client, consumer, nil); err == nil {
		t.Fatal("expected execute mode to require producer")
	}

	if err := runReplay(context.Background(), cfg, &stubOffsetClient{}, consumer, nil); err != nil {
		t.Fatalf("expected nil error for empty partitions, got %v", err)
	}
}

func TestRun_UsesDependencies(t *testing.T) {
	oldDeps := newReplayDependencies
	t.Cleanup(func() { newReplayDependencies = oldDeps })

	cfg := testConfig()
	cfg.limit = 1

	newReplayDependencies = func(config) (offsetClient, partitionConsumerSource, replayProducer, error) {
		return nil, nil, nil, errors.New("deps failed")
	}
	if err := run(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "deps failed") {
		t.Fatalf("expected deps error, got %v", err)
	}

	client := &stubOffsetClient{partitions: []int32{0}, offsets: map[int32]offsetRange{0: {oldest: 0, newest: 1}}}
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
		0: closedPartitionConsumer([]*sarama.ConsumerMessage{consumerDLQMessage(0, "order-1")}),
	}}
	producer := &stubReplayProducer{}
	newReplayDependencies = func(config) (offsetClient, partitionConsumerSource, replayProducer, error) {
		return client, consumer, producer, nil
	}
	if err := run(context.Background(), cfg); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !client.closed || !consumer.closed || !producer.closed {
		t.Fatalf("expected all deps to be closed: client=%v consumer=%v producer=%v", client.closed, consumer.closed, producer.closed)
	}
}

func TestFailExits(t *testing.T) {
	if os.Getenv("DLQ_TEST_FAIL_EXIT") == "1" {
		fail("boom")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFailExits")
	cmd.Env = append(os.Environ(), "DLQ_TEST_FAIL_EXIT=1")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected subprocess to exit with error")
	}
	if exitErr, ok := err.(*exec.ExitError); !ok || exitErr.ExitCode() == 0 {
		t.Fatalf("expected non-zero exit code, got %v", err)
	}
}

type offsetRange struct {
	oldest int64
	newest int64
}

type stubOffsetClient struct {
	partitions    []int32
	partitionsErr error
	offsets       map[int32]offsetRange
	offsetErr     map[int32]error
	closed        bool
}

func (s *stubOffsetClient) GetOffset(_ string, partition int32, marker int64) (int64, error) {
	if err, ok := s.offsetErr[partition]; ok {
		return 0, err
	}

	r := s.offsets[partition]
	switch marker {
	case sarama.OffsetOldest:
		return r.oldest, nil
	case sarama.OffsetNewest:
		return r.newest, nil
	default:
		return 0, fmt.Errorf("unsupported marker %d", marker)
	}
}

func (s *stubOffsetClient) Partitions(string) ([]int32, error) {
	if s.partitionsErr != nil {
		return nil, s.partitionsErr
	}
	return append([]int32(nil), s.partitions...), nil
}

func (s *stubOffsetClient) Close() error {
	s.closed = true
	return nil
}

type consumeCall struct {
	partition int32
	offset    int64
}

type stubPartitionConsumerSource struct {
	consumers  map[int32]partitionConsumer
	consumeErr error
	calls      []consumeCall
	closed     bool
}

func (s *stubPartitionConsumerSource) ConsumePartition(_ string, partition int32, offset int64) (partitionConsumer, error) {
	s.calls = append(s.calls, consumeCall{partition: partition, offset: offset})
	if s.consumeErr != nil {
		return nil, s.consumeErr
	}
	pc, ok := s.consumers[partition]
	if !ok {
		return nil, fmt.Errorf("partition %d not configured", partition)
	}
	return pc, nil
}

func (s *stubPartitionConsumerSource) Close() error {
	s.closed = true
	return nil
}

type stubPartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
	closed   bool
}

func (s *stubPartitionConsumer) Messages() <-chan *sarama.ConsumerMessage { return s.messages }
func (s *stubPartitionConsumer) Errors() <-chan *sarama.ConsumerError     { return s.errors }
func (s *stubPartitionConsumer) Close() error {
	s.closed = true
	return nil
}

func closedPartitionConsumer(messages []*sarama.ConsumerMessage) *stubPartitionConsumer {
	msgCh := make(chan *sarama.ConsumerMessage, len(messages))
	errCh := make(chan *sarama.ConsumerError)
	for _, msg := range messages {
		msgCh <- msg
	}
	close(msgCh)
	close(errCh)
	return &stubPartitionConsumer{messages: msgCh, errors: errCh}
}

type stubReplayProducer struct {
	sendErr error
	calls   int
	closed  bool
	lastMsg *sarama.ProducerMessage
}

func (s *stubReplayProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	s.calls++
	s.lastMsg = msg
	if s.sendErr != nil {
		return 0, 0, s.sendErr
	}
	return 0, int64(s.calls), nil
}

func (s *stubReplayProducer) Close() error {
	s.closed = true
	return nil
}
