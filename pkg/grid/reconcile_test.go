package grid

import (
	"reflect"
	"testing"
)

func TestReconcileCancelAndPlace(t *testing.T) {
	open := OpenOrdersByPrice{
		88500: {"o1"},
		87000: {"o2"},
	}
	target := []int64{88500, 85500, 84000}

	plan := Reconcile(open, target)

	if !reflect.DeepEqual(plan.CancelIDs, []string{"o2"}) {
		t.Errorf("撤单集合不匹配: got %v, want [o2]", plan.CancelIDs)
	}
	if !reflect.DeepEqual(plan.PlacePrices, []int64{85500, 84000}) {
		t.Errorf("补单集合不匹配: got %v, want [85500 84000]", plan.PlacePrices)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	// 挂单已与目标一致时不产生任何动作
	open := OpenOrdersByPrice{
		88500: {"o1"},
		87000: {"o2"},
	}
	plan := Reconcile(open, []int64{88500, 87000})

	if len(plan.CancelIDs) != 0 || len(plan.PlacePrices) != 0 {
		t.Errorf("对齐状态下不应有动作: cancel=%v place=%v", plan.CancelIDs, plan.PlacePrices)
	}
}

func TestReconcileMultipleOrdersPerPrice(t *testing.T) {
	// 同一价格层的多笔挂单整体撤销
	open := OpenOrdersByPrice{
		87000: {"o1", "o2", "o3"},
	}
	plan := Reconcile(open, []int64{88500})

	if len(plan.CancelIDs) != 3 {
		t.Errorf("同价格层应全部撤销: got %v", plan.CancelIDs)
	}
	if !reflect.DeepEqual(plan.PlacePrices, []int64{88500}) {
		t.Errorf("补单集合不匹配: got %v", plan.PlacePrices)
	}
}

func TestReconcileDisjointSets(t *testing.T) {
	// 撤单价格层与补单价格层不相交
	open := OpenOrdersByPrice{
		88500: {"a"},
		86000: {"b"},
		91000: {"c"},
	}
	target := []int64{88500, 87000, 85500}
	plan := Reconcile(open, target)

	cancelSet := map[string]bool{}
	for _, id := range plan.CancelIDs {
		cancelSet[id] = true
	}
	if !cancelSet["b"] || !cancelSet["c"] || cancelSet["a"] {
		t.Errorf("撤单集合错误: %v", plan.CancelIDs)
	}

	placeSet := map[int64]bool{}
	for _, price := range plan.PlacePrices {
		placeSet[price] = true
	}
	if placeSet[88500] {
		t.Error("已有挂单的价格层不应补单")
	}
	if !placeSet[87000] || !placeSet[85500] {
		t.Errorf("补单集合错误: %v", plan.PlacePrices)
	}
}

func TestReconcileEmptyInputs(t *testing.T) {
	plan := Reconcile(OpenOrdersByPrice{}, nil)
	if len(plan.CancelIDs) != 0 || len(plan.PlacePrices) != 0 {
		t.Errorf("空输入不应有动作: %+v", plan)
	}

	plan = Reconcile(OpenOrdersByPrice{90000: {"x"}}, nil)
	if !reflect.DeepEqual(plan.CancelIDs, []string{"x"}) {
		t.Errorf("目标为空时应全部撤单: %v", plan.CancelIDs)
	}
}
