package lock_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/dselans/music-catalog/backends/lock"
	"github.com/dselans/music-catalog/clog"
)

var _ = Describe("Lock", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("FileLock", func() {
		var (
			dir  string
			path string
		)

		BeforeEach(func() {
			var err error

			dir, err = os.MkdirTemp("", "catalog-lock-*")
			Expect(err).ToNot(HaveOccurred())

			path = filepath.Join(dir, lock.DefaultFileName)
		})

		AfterEach(func() {
			os.RemoveAll(dir)
		})

		It("lets one writer in at a time", func() {
			first, err := lock.NewFile(path, &clog.TestLogger{})
			Expect(err).ToNot(HaveOccurred())

			second, err := lock.NewFile(path, &clog.TestLogger{})
			Expect(err).ToNot(HaveOccurred())

			Expect(first.Acquire(ctx)).To(Succeed())

			err = second.Acquire(ctx)
			Expect(errors.Is(err, lock.ErrLocked)).To(BeTrue())

			Expect(first.Release(ctx)).To(Succeed())
			Expect(second.Acquire(ctx)).To(Succeed())
			Expect(second.Release(ctx)).To(Succeed())
		})

		It("treats releasing an unheld lock as a no-op", func() {
			l, err := lock.NewFile(path, &clog.TestLogger{})
			Expect(err).ToNot(HaveOccurred())

			Expect(l.Release(ctx)).To(Succeed())
			Expect(l.Name()).To(Equal("file:" + path))
		})

		It("validates its arguments", func() {
			_, err := lock.NewFile("", &clog.TestLogger{})
			Expect(err).To(HaveOccurred())

			_, err = lock.NewFile(path, nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("RedisLock", func() {
		It("validates options and applies defaults", func() {
			_, err := lock.NewRedis(nil)
			Expect(err).To(HaveOccurred())

			_, err = lock.NewRedis(&lock.RedisOptions{Log: &clog.TestLogger{}})
			Expect(err).To(HaveOccurred())

			opts := &lock.RedisOptions{Addr: "127.0.0.1:1", Log: &clog.TestLogger{}}

			l, err := lock.NewRedis(opts)
			Expect(err).ToNot(HaveOccurred())
			Expect(l.Name()).To(Equal("redis:" + lock.DefaultRedisKey))
			Expect(opts.TTL).To(Equal(lock.DefaultTTL))
		})

		It("reports an unreachable server as an error other than ErrLocked", func() {
			l, err := lock.NewRedis(&lock.RedisOptions{Addr: "127.0.0.1:1", Log: &clog.TestLogger{}})
			Expect(err).ToNot(HaveOccurred())

			tctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()

			err = l.Acquire(tctx)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, lock.ErrLocked)).To(BeFalse())

			Expect(l.Release(ctx)).To(Succeed())
		})
	})
})
