package category

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.etcd.io/bbolt"
)

var _ = Describe("BoltStore", func() {
	var (
		db    *bbolt.DB
		store *BoltStore
		at    time.Time
	)

	BeforeEach(func() {
		var err error
		db, err = bbolt.Open(filepath.Join(GinkgoT().TempDir(), "store.db"), 0600, nil)
		Expect(err).NotTo(HaveOccurred())
		store, err = NewBoltStore(db)
		Expect(err).NotTo(HaveOccurred())
		at = time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		db.Close()
	})

	Describe("Reinforce", func() {
		It("inserts new entries with a usage count of one", func() {
			entry, err := store.Reinforce("CONAD", Supermarket, at)
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.UsageCount).To(Equal(1))
			Expect(entry.LastUsed).To(Equal(at))
		})

		It("keeps the same keyword separate per category", func() {
			_, err := store.Reinforce("MARINA", Parking, at)
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Reinforce("MARINA", TenderFuel, at)
			Expect(err).NotTo(HaveOccurred())

			entries, err := store.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
		})

		It("rejects categories outside the vocabulary", func() {
			_, err := store.Reinforce("CONAD", "Groceries", at)
			Expect(errors.Is(err, ErrInvalidCategory)).To(BeTrue())
		})

		It("does not lose increments under concurrent writers", func() {
			const writers = 25
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := store.Reinforce("ESSO", Fuel, at)
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			entries, err := store.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].UsageCount).To(Equal(writers))
		})
	})

	Describe("Reset", func() {
		It("removes every learned keyword", func() {
			_, err := store.Reinforce("CONAD", Supermarket, at)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.Reset()).To(Succeed())

			entries, err := store.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})
	})
})

var _ = Describe("KeywordStore", func() {
	It("folds and deduplicates keywords", func() {
		store, err := NewKeywordStore(map[string][]string{"food": {"Caffè", "caffe", " Bistrot "}})
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Categories()).To(Equal([]string{Food}))
		Expect(store.Keywords(Food)).To(Equal([]string{"CAFFE", "BISTROT"}))
	})

	It("rejects unknown categories", func() {
		_, err := NewKeywordStore(map[string][]string{"Groceries": {"COOP"}})
		Expect(errors.Is(err, ErrInvalidCategory)).To(BeTrue())
	})

	It("covers the whole vocabulary by default", func() {
		Expect(DefaultKeywordStore().Categories()).To(ConsistOf(Names()))
	})

	Describe("LoadKeywordStore", func() {
		var path string

		BeforeEach(func() {
			path = filepath.Join(GinkgoT().TempDir(), "keywords.yaml")
		})

		It("loads a YAML table", func() {
			yaml := "categories:\n  - name: Fuel\n    keywords: [ENI, Q8]\n  - name: Parking\n    keywords:\n      - Parcheggio\n"
			Expect(os.WriteFile(path, []byte(yaml), 0644)).To(Succeed())

			store, err := LoadKeywordStore(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Categories()).To(Equal([]string{Fuel, Parking}))
			Expect(store.Keywords(Parking)).To(Equal([]string{"PARCHEGGIO"}))
		})

		It("fails on an empty table", func() {
			Expect(os.WriteFile(path, []byte("categories: []\n"), 0644)).To(Succeed())
			_, err := LoadKeywordStore(path)
			Expect(err).To(HaveOccurred())
		})

		It("fails on a missing file", func() {
			_, err := LoadKeywordStore(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
			Expect(err).To(HaveOccurred())
		})
	})
})
