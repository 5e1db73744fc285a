package receipt

import (
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.etcd.io/bbolt"

	"github.com/zombor/receipt-interpreter/internal/engine"
)

var _ = Describe("BoltDB", func() {
	var (
		bolt *bbolt.DB
		db   *BoltDB
	)

	BeforeEach(func() {
		var err error
		bolt, err = OpenBolt(filepath.Join(GinkgoT().TempDir(), "test.db"))
		Expect(err).NotTo(HaveOccurred())
		db, err = NewBoltDB(bolt)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		bolt.Close()
	})

	Describe("SaveReceipt", func() {
		var receipt *Receipt

		BeforeEach(func() {
			amount := int64(2599)
			date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
			receipt = &Receipt{
				ID:         "test-id",
				Merchant:   "Esso",
				Date:       &date,
				Amount:     &amount,
				Category:   "Fuel",
				Confidence: engine.ConfidenceHigh,
				Source:     engine.SourceMerged,
				Files:      []File{{Name: "test-id_0_a.jpg", ContentType: "image/jpeg"}},
				CreatedAt:  time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			}
			Expect(db.SaveReceipt(receipt)).To(Succeed())
		})

		It("can be read back", func() {
			got, err := db.GetReceipt("test-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Merchant).To(Equal("Esso"))
			Expect(*got.Amount).To(Equal(int64(2599)))
			Expect(got.Date.Equal(*receipt.Date)).To(BeTrue())
			Expect(got.Source).To(Equal(engine.SourceMerged))
			Expect(got.Files).To(Equal(receipt.Files))
		})

		It("replaces an existing receipt", func() {
			receipt.Category = "Crew"
			Expect(db.SaveReceipt(receipt)).To(Succeed())

			got, err := db.GetReceipt("test-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Category).To(Equal("Crew"))
		})
	})

	Describe("GetReceipt", func() {
		When("the receipt does not exist", func() {
			It("returns ErrNotFound", func() {
				_, err := db.GetReceipt("missing")
				Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
			})
		})
	})

	Describe("ListReceipts", func() {
		When("the bucket is empty", func() {
			It("returns an empty slice", func() {
				receipts, err := db.ListReceipts()
				Expect(err).NotTo(HaveOccurred())
				Expect(receipts).NotTo(BeNil())
				Expect(receipts).To(BeEmpty())
			})
		})

		When("receipts exist", func() {
			BeforeEach(func() {
				base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
				Expect(db.SaveReceipt(&Receipt{ID: "a", CreatedAt: base})).To(Succeed())
				Expect(db.SaveReceipt(&Receipt{ID: "b", CreatedAt: base.Add(2 * time.Hour)})).To(Succeed())
				Expect(db.SaveReceipt(&Receipt{ID: "c", CreatedAt: base.Add(time.Hour)})).To(Succeed())
			})

			It("returns them newest first", func() {
				receipts, err := db.ListReceipts()
				Expect(err).NotTo(HaveOccurred())
				ids := make([]string, 0, len(receipts))
				for _, r := range receipts {
					ids = append(ids, r.ID)
				}
				Expect(ids).To(Equal([]string{"b", "c", "a"}))
			})
		})
	})

	Describe("DeleteReceipt", func() {
		It("removes the receipt", func() {
			Expect(db.SaveReceipt(&Receipt{ID: "gone"})).To(Succeed())
			Expect(db.DeleteReceipt("gone")).To(Succeed())
			_, err := db.GetReceipt("gone")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})

		It("returns ErrNotFound for unknown IDs", func() {
			Expect(errors.Is(db.DeleteReceipt("missing"), ErrNotFound)).To(BeTrue())
		})
	})

	It("shares the file with other buckets", func() {
		err := bolt.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists([]byte("learned_keywords"))
			return err
		})
		Expect(err).NotTo(HaveOccurred())

		again, err := NewBoltDB(bolt)
		Expect(err).NotTo(HaveOccurred())
		Expect(again.SaveReceipt(&Receipt{ID: "x"})).To(Succeed())
	})
})
